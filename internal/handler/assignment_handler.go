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

type choreService interface {
	Complete(ctx context.Context, assignmentID string, actor models.Actor, now time.Time) (*models.Assignment, error)
	Approve(ctx context.Context, assignmentID string, actor models.Actor, rewardValue *float64, now time.Time) (*models.Assignment, error)
	Reject(ctx context.Context, assignmentID string, actor models.Actor, reason string, now time.Time) (*models.Assignment, error)
	Reset(ctx context.Context, assignmentID string, actor models.Actor) (*models.Assignment, error)
	ListMine(ctx context.Context, actor models.Actor, now time.Time) ([]models.AssignmentView, error)
}

// ApproveRequest optionally fixes the payout for range-reward tasks.
type ApproveRequest struct {
	RewardValue *float64 `json:"reward_value,omitempty"`
}

// RejectRequest carries the reason shown to the assignee.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// AssignmentHandler exposes the assignment lifecycle endpoints.
type AssignmentHandler struct {
	chores  choreService
	metrics *service.MetricsService
}

// NewAssignmentHandler builds a new handler. metrics may be nil.
func NewAssignmentHandler(chores choreService, metrics *service.MetricsService) *AssignmentHandler {
	return &AssignmentHandler{chores: chores, metrics: metrics}
}

// ListMine godoc
// @Summary List the caller's assignments with availability
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	views, err := h.chores.ListMine(c.Request.Context(), actorFromContext(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Complete godoc
// @Summary Mark an assignment completed
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment id"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/complete [post]
func (h *AssignmentHandler) Complete(c *gin.Context) {
	assignment, err := h.chores.Complete(c.Request.Context(), c.Param("id"), actorFromContext(c), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCompletion()
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Approve godoc
// @Summary Approve a completed assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment id"
// @Param payload body ApproveRequest false "Payout override"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/approve [post]
func (h *AssignmentHandler) Approve(c *gin.Context) {
	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
			return
		}
	}
	assignment, err := h.chores.Approve(c.Request.Context(), c.Param("id"), actorFromContext(c), req.RewardValue, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordApproval()
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Reject godoc
// @Summary Reject a completed assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment id"
// @Param payload body RejectRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/reject [post]
func (h *AssignmentHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}
	assignment, err := h.chores.Reject(c.Request.Context(), c.Param("id"), actorFromContext(c), req.Reason, time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Reset godoc
// @Summary Reset an assignment's cycle
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment id"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/reset [post]
func (h *AssignmentHandler) Reset(c *gin.Context) {
	assignment, err := h.chores.Reset(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}
