package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/recurrence"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type taskStore interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	Delete(ctx context.Context, id string) error
}

type assignmentCreator interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByTaskAndAssignee(ctx context.Context, taskID, assigneeID string) (*models.Assignment, error)
	CountByTask(ctx context.Context, taskID string) (int, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Assignment, error)
}

type familyReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateTaskRequest describes the task payload. Reward terms are either a
// fixed amount or a min/max range, never both.
type CreateTaskRequest struct {
	Title        string                `json:"title" validate:"required"`
	Description  string                `json:"description"`
	RewardAmount *float64              `json:"reward_amount" validate:"omitempty,gte=0"`
	MinReward    *float64              `json:"min_reward" validate:"omitempty,gte=0"`
	MaxReward    *float64              `json:"max_reward" validate:"omitempty,gte=0"`
	Kind         models.RecurrenceKind `json:"recurrence_kind" validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY"`
	Weekday      int                   `json:"recurrence_weekday"`
	DayOfMonth   int                   `json:"recurrence_day_of_month"`
	Mode         models.AssignmentMode `json:"assignment_mode" validate:"required,oneof=SINGLE MULTI_INDEPENDENT POOL"`
}

// TaskService handles task administration: creation, mutation, assignment
// and the disabled toggle. All writes are administrator-only.
type TaskService struct {
	tasks       taskStore
	assignments assignmentCreator
	users       familyReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTaskService creates a service instance.
func NewTaskService(tasks taskStore, assignments assignmentCreator, users familyReader, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{tasks: tasks, assignments: assignments, users: users, validator: validate, logger: logger}
}

// Create registers a new task administered by the acting parent.
func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest, actor models.Actor) (*models.Task, error) {
	if !actor.IsParent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only parents may create tasks")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:        req.Title,
		Description:  req.Description,
		CreatedBy:    actor.UserID,
		RewardAmount: req.RewardAmount,
		MinReward:    req.MinReward,
		MaxReward:    req.MaxReward,
		RecurrenceRule: models.RecurrenceRule{
			Kind:       normalizeKind(req.Kind),
			Weekday:    req.Weekday,
			DayOfMonth: req.DayOfMonth,
		},
		Mode: req.Mode,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Update rewrites a task's reward terms, recurrence and mode.
func (s *TaskService) Update(ctx context.Context, taskID string, req CreateTaskRequest, actor models.Actor) (*models.Task, error) {
	task, err := s.loadAdministered(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	task.Title = req.Title
	task.Description = req.Description
	task.RewardAmount = req.RewardAmount
	task.MinReward = req.MinReward
	task.MaxReward = req.MaxReward
	task.RecurrenceRule = models.RecurrenceRule{
		Kind:       normalizeKind(req.Kind),
		Weekday:    req.Weekday,
		DayOfMonth: req.DayOfMonth,
	}
	task.Mode = req.Mode

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Get loads one task; children see it only through listings, so reads are
// administrator-only here.
func (s *TaskService) Get(ctx context.Context, taskID string, actor models.Actor) (*models.Task, error) {
	return s.loadAdministered(ctx, taskID, actor)
}

// ListMine returns every task the parent administers.
func (s *TaskService) ListMine(ctx context.Context, actor models.Actor) ([]models.Task, error) {
	if !actor.IsParent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only parents list administered tasks")
	}
	tasks, err := s.tasks.ListByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

// Assign binds a task to a child for SINGLE and MULTI_INDEPENDENT modes.
// Pool tasks are claimed by children, never assigned.
func (s *TaskService) Assign(ctx context.Context, taskID, assigneeID string, actor models.Actor) (*models.Assignment, error) {
	task, err := s.loadAdministered(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.Mode == models.ModePool {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "pool tasks are claimed, not assigned")
	}

	assignee, err := s.users.FindByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}
	if assignee.Role != models.RoleChild || assignee.ParentID == nil || *assignee.ParentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignee is not administered by this parent")
	}

	switch task.Mode {
	case models.ModeSingle:
		count, err := s.assignments.CountByTask(ctx, taskID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "single-mode task is already assigned")
		}
	case models.ModeMultiIndependent:
		if _, err := s.assignments.FindByTaskAndAssignee(ctx, taskID, assigneeID); err == nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignee already has this task")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
		}
	}

	assignment := &models.Assignment{TaskID: taskID, AssigneeID: &assigneeID}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// ListAssignments returns the assignments of an administered task.
func (s *TaskService) ListAssignments(ctx context.Context, taskID string, actor models.Actor) ([]models.Assignment, error) {
	if _, err := s.loadAdministered(ctx, taskID, actor); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Disable blocks further completions without touching assignment state.
func (s *TaskService) Disable(ctx context.Context, taskID string, actor models.Actor) error {
	return s.toggle(ctx, taskID, actor, true)
}

// Enable lifts the disabled flag.
func (s *TaskService) Enable(ctx context.Context, taskID string, actor models.Actor) error {
	return s.toggle(ctx, taskID, actor, false)
}

// Delete removes a task and cascades to its assignments and visibility
// entries.
func (s *TaskService) Delete(ctx context.Context, taskID string, actor models.Actor) error {
	if _, err := s.loadAdministered(ctx, taskID, actor); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

func (s *TaskService) toggle(ctx context.Context, taskID string, actor models.Actor, disabled bool) error {
	if _, err := s.loadAdministered(ctx, taskID, actor); err != nil {
		return err
	}
	if err := s.tasks.SetDisabled(ctx, taskID, disabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle task")
	}
	return nil
}

func (s *TaskService) loadAdministered(ctx context.Context, taskID string, actor models.Actor) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may do this")
	}
	return task, nil
}

func (s *TaskService) validateRequest(req CreateTaskRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if err := recurrence.ValidateRule(models.RecurrenceRule{
		Kind:       normalizeKind(req.Kind),
		Weekday:    req.Weekday,
		DayOfMonth: req.DayOfMonth,
	}); err != nil {
		return err
	}
	hasRange := req.MinReward != nil && req.MaxReward != nil
	if hasRange {
		if req.RewardAmount != nil {
			return appErrors.Clone(appErrors.ErrValidation, "reward is either fixed or a range, not both")
		}
		if *req.MinReward > *req.MaxReward {
			return appErrors.Clone(appErrors.ErrValidation, "min reward exceeds max reward")
		}
	} else if (req.MinReward == nil) != (req.MaxReward == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "reward range requires both min and max")
	}
	return nil
}

func normalizeKind(kind models.RecurrenceKind) models.RecurrenceKind {
	if kind == "" {
		return models.RecurrenceNone
	}
	return kind
}
