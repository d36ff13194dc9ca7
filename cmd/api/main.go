package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/famboard/chores-api/api/swagger"
	"github.com/famboard/chores-api/internal/handler"
	"github.com/famboard/chores-api/internal/middleware"
	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/repository"
	"github.com/famboard/chores-api/internal/service"
	"github.com/famboard/chores-api/pkg/cache"
	"github.com/famboard/chores-api/pkg/config"
	"github.com/famboard/chores-api/pkg/database"
	"github.com/famboard/chores-api/pkg/logger"
	corsmiddleware "github.com/famboard/chores-api/pkg/middleware/cors"
	reqidmiddleware "github.com/famboard/chores-api/pkg/middleware/requestid"
)

// @title FamBoard Chores API
// @version 0.1.0
// @description Household chores: tasks, assignments, recurrence and allowance ledger
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, pool listings uncached", "error", err)
		redisClient = nil
	}

	loc, err := time.LoadLocation(cfg.Chores.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid chores timezone", "timezone", cfg.Chores.Timezone, "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	visibilityRepo := repository.NewVisibilityRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "famboard-chores-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, assignmentRepo, userRepo, validate, logr)
	visibilitySvc := service.NewVisibilityService(taskRepo, visibilityRepo, logr)
	choreSvc := service.NewChoreService(taskRepo, assignmentRepo, ledgerRepo, visibilityRepo, loc, logr)
	poolSvc := service.NewPoolService(taskRepo, assignmentRepo, visibilitySvc, cacheRepo, cfg.Pool.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	taskHandler := handler.NewTaskHandler(taskSvc, visibilitySvc)
	assignmentHandler := handler.NewAssignmentHandler(choreSvc, metricsSvc)
	poolHandler := handler.NewPoolHandler(poolSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	authorized := api.Group("")
	authorized.Use(middleware.JWT(authSvc))
	{
		family := authorized.Group("/family", middleware.RequireRoles(models.RoleParent))
		{
			family.POST("/children", userHandler.CreateChild)
			family.GET("/children", userHandler.ListChildren)
		}

		tasks := authorized.Group("/tasks")
		{
			tasks.GET("/:id", taskHandler.Get)

			admin := tasks.Group("", middleware.RequireRoles(models.RoleParent))
			{
				admin.GET("", taskHandler.List)
				admin.POST("", taskHandler.Create)
				admin.PUT("/:id", taskHandler.Update)
				admin.DELETE("/:id", taskHandler.Delete)
				admin.POST("/:id/assignments", taskHandler.Assign)
				admin.GET("/:id/assignments", taskHandler.ListAssignments)
				admin.POST("/:id/disable", taskHandler.Disable)
				admin.POST("/:id/enable", taskHandler.Enable)
				admin.PUT("/:id/visibility", taskHandler.SetVisibility)
				admin.GET("/:id/visibility", taskHandler.ListVisibility)
			}
		}

		assignments := authorized.Group("/assignments")
		{
			assignments.GET("", assignmentHandler.ListMine)
			assignments.POST("/:id/complete", assignmentHandler.Complete)
			assignments.POST("/:id/approve", middleware.RequireRoles(models.RoleParent), assignmentHandler.Approve)
			assignments.POST("/:id/reject", middleware.RequireRoles(models.RoleParent), assignmentHandler.Reject)
			assignments.POST("/:id/reset", middleware.RequireRoles(models.RoleParent), assignmentHandler.Reset)
		}

		pool := authorized.Group("/pool")
		{
			pool.GET("", poolHandler.List)
			pool.POST("/:id/claim", poolHandler.Claim)
		}

		if cfg.Statements.Enabled {
			ledgerSvc := service.NewLedgerService(ledgerRepo, userRepo, cfg.Statements.Title, logr)
			ledgerHandler := handler.NewLedgerHandler(ledgerSvc)

			ledger := authorized.Group("/ledger")
			{
				ledger.GET("/:childId/entries", ledgerHandler.ListEntries)
				ledger.GET("/:childId/balance", ledgerHandler.Balance)
				ledger.GET("/:childId/statement", ledgerHandler.Statement)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
