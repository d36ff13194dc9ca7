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

type taskService interface {
	Create(ctx context.Context, req service.CreateTaskRequest, actor models.Actor) (*models.Task, error)
	Update(ctx context.Context, taskID string, req service.CreateTaskRequest, actor models.Actor) (*models.Task, error)
	Get(ctx context.Context, taskID string, actor models.Actor) (*models.Task, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Task, error)
	Assign(ctx context.Context, taskID, assigneeID string, actor models.Actor) (*models.Assignment, error)
	ListAssignments(ctx context.Context, taskID string, actor models.Actor) ([]models.Assignment, error)
	Disable(ctx context.Context, taskID string, actor models.Actor) error
	Enable(ctx context.Context, taskID string, actor models.Actor) error
	Delete(ctx context.Context, taskID string, actor models.Actor) error
}

type taskVisibilityService interface {
	SetHidden(ctx context.Context, taskID, userID string, hidden bool, actor models.Actor) (*models.TaskVisibility, error)
	ListByTask(ctx context.Context, taskID string, actor models.Actor) ([]models.TaskVisibility, error)
}

// AssignTaskRequest names the child receiving the assignment.
type AssignTaskRequest struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

// SetVisibilityRequest toggles per-user visibility.
type SetVisibilityRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	IsHidden bool   `json:"is_hidden"`
}

// TaskHandler exposes task administration endpoints.
type TaskHandler struct {
	tasks      taskService
	visibility taskVisibilityService
}

// NewTaskHandler builds a new handler.
func NewTaskHandler(tasks taskService, visibility taskVisibilityService) *TaskHandler {
	return &TaskHandler{tasks: tasks, visibility: visibility}
}

// Create godoc
// @Summary Create a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body service.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Update godoc
// @Summary Update a task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task id"
// @Param payload body service.CreateTaskRequest true "Task payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Get godoc
// @Summary Get a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// List godoc
// @Summary List administered tasks
// @Tags Tasks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.tasks.ListMine(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// Assign godoc
// @Summary Assign a task to a child
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task id"
// @Param payload body AssignTaskRequest true "Assignee"
// @Success 201 {object} response.Envelope
// @Router /tasks/{id}/assignments [post]
func (h *TaskHandler) Assign(c *gin.Context) {
	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.tasks.Assign(c.Request.Context(), c.Param("id"), req.AssigneeID, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// ListAssignments godoc
// @Summary List the assignments of a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/assignments [get]
func (h *TaskHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.tasks.ListAssignments(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Disable godoc
// @Summary Disable a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 204 "No Content"
// @Router /tasks/{id}/disable [post]
func (h *TaskHandler) Disable(c *gin.Context) {
	if err := h.tasks.Disable(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enable godoc
// @Summary Enable a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 204 "No Content"
// @Router /tasks/{id}/enable [post]
func (h *TaskHandler) Enable(c *gin.Context) {
	if err := h.tasks.Enable(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a task and its assignments
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 204 "No Content"
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetVisibility godoc
// @Summary Hide or show a task for one user
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task id"
// @Param payload body SetVisibilityRequest true "Visibility entry"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/visibility [put]
func (h *TaskHandler) SetVisibility(c *gin.Context) {
	var req SetVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid visibility payload"))
		return
	}
	entry, err := h.visibility.SetHidden(c.Request.Context(), c.Param("id"), req.UserID, req.IsHidden, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ListVisibility godoc
// @Summary List visibility entries of a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/visibility [get]
func (h *TaskHandler) ListVisibility(c *gin.Context) {
	entries, err := h.visibility.ListByTask(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
