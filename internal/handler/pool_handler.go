package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/service"
	appErrors "github.com/famboard/chores-api/pkg/errors"
	"github.com/famboard/chores-api/pkg/response"
)

type poolService interface {
	ListAvailable(ctx context.Context, viewer models.Actor, now time.Time) ([]models.PoolTaskView, error)
	Claim(ctx context.Context, taskID string, viewer models.Actor, now time.Time) (*models.Assignment, error)
}

// PoolHandler exposes the shared task pool.
type PoolHandler struct {
	pool    poolService
	metrics *service.MetricsService
}

// NewPoolHandler builds a new handler. metrics may be nil.
func NewPoolHandler(pool poolService, metrics *service.MetricsService) *PoolHandler {
	return &PoolHandler{pool: pool, metrics: metrics}
}

// List godoc
// @Summary List pool tasks visible to the caller
// @Tags Pool
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pool [get]
func (h *PoolHandler) List(c *gin.Context) {
	views, err := h.pool.ListAvailable(c.Request.Context(), actorFromContext(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Claim godoc
// @Summary Claim a pool task
// @Tags Pool
// @Produce json
// @Param id path string true "Task id"
// @Success 201 {object} response.Envelope
// @Router /pool/{id}/claim [post]
func (h *PoolHandler) Claim(c *gin.Context) {
	assignment, err := h.pool.Claim(c.Request.Context(), c.Param("id"), actorFromContext(c), time.Now().UTC())
	if err != nil {
		if h.metrics != nil && appErrors.Is(err, appErrors.ErrInvalidState) {
			h.metrics.RecordClaim(true)
		}
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordClaim(false)
	}
	response.Created(c, assignment)
}
