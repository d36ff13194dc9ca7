package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type visibilityStore interface {
	Upsert(ctx context.Context, entry *models.TaskVisibility) error
	IsHidden(ctx context.Context, taskID, userID string) (bool, error)
	HiddenTaskIDs(ctx context.Context, userID string) ([]string, error)
	ListByTask(ctx context.Context, taskID string) ([]models.TaskVisibility, error)
}

// VisibilityService filters task listings against per-user hide entries.
type VisibilityService struct {
	tasks   taskReader
	entries visibilityStore
	logger  *zap.Logger
}

// NewVisibilityService creates a service instance.
func NewVisibilityService(tasks taskReader, entries visibilityStore, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{tasks: tasks, entries: entries, logger: logger}
}

// FilterVisible removes tasks hidden from the viewer. Administrators bypass
// filtering: they always see everything they created.
func (s *VisibilityService) FilterVisible(ctx context.Context, tasks []models.Task, viewer models.Actor) ([]models.Task, error) {
	if viewer.IsParent() {
		return tasks, nil
	}

	hiddenIDs, err := s.entries.HiddenTaskIDs(ctx, viewer.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visibility entries")
	}
	if len(hiddenIDs) == 0 {
		return tasks, nil
	}

	hidden := make(map[string]struct{}, len(hiddenIDs))
	for _, id := range hiddenIDs {
		hidden[id] = struct{}{}
	}

	visible := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := hidden[task.ID]; ok {
			continue
		}
		visible = append(visible, task)
	}
	return visible, nil
}

// IsHidden reports whether one task is hidden from the viewer. Parents never
// have tasks hidden from them.
func (s *VisibilityService) IsHidden(ctx context.Context, taskID string, viewer models.Actor) (bool, error) {
	if viewer.IsParent() {
		return false, nil
	}
	hidden, err := s.entries.IsHidden(ctx, taskID, viewer.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check visibility")
	}
	return hidden, nil
}

// SetHidden creates or updates the hide entry for a (task, user) pair.
// Only the task's administrator may write entries.
func (s *VisibilityService) SetHidden(ctx context.Context, taskID, userID string, hidden bool, actor models.Actor) (*models.TaskVisibility, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may change visibility")
	}

	entry := &models.TaskVisibility{TaskID: taskID, UserID: userID, IsHidden: hidden}
	if err := s.entries.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store visibility entry")
	}
	return entry, nil
}

// ListByTask returns the visibility entries for a task, administrator-only.
func (s *VisibilityService) ListByTask(ctx context.Context, taskID string, actor models.Actor) ([]models.TaskVisibility, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may list visibility")
	}

	entries, err := s.entries.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list visibility entries")
	}
	return entries, nil
}
