package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/service"
	appErrors "github.com/famboard/chores-api/pkg/errors"
	"github.com/famboard/chores-api/pkg/response"
)

type userService interface {
	CreateChild(ctx context.Context, req service.CreateChildRequest, actor models.Actor) (*models.User, error)
	ListChildren(ctx context.Context, actor models.Actor) ([]models.User, error)
}

// UserHandler exposes family membership endpoints.
type UserHandler struct {
	users userService
}

// NewUserHandler builds a new handler.
func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateChild godoc
// @Summary Register a child account
// @Tags Family
// @Accept json
// @Produce json
// @Param payload body service.CreateChildRequest true "Child payload"
// @Success 201 {object} response.Envelope
// @Router /family/children [post]
func (h *UserHandler) CreateChild(c *gin.Context) {
	var req service.CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}
	child, err := h.users.CreateChild(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, child)
}

// ListChildren godoc
// @Summary List the caller's children
// @Tags Family
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /family/children [get]
func (h *UserHandler) ListChildren(c *gin.Context) {
	children, err := h.users.ListChildren(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}
