package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/recurrence"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type poolTaskRepo interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListPool(ctx context.Context) ([]models.Task, error)
}

type poolAssignmentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindByTaskAndAssignee(ctx context.Context, taskID, assigneeID string) (*models.Assignment, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Assignment, error)
	ClaimPool(ctx context.Context, assignment *models.Assignment, now time.Time) error
	Reclaim(ctx context.Context, taskID, id string, now time.Time) error
}

type visibilityChecker interface {
	FilterVisible(ctx context.Context, tasks []models.Task, viewer models.Actor) ([]models.Task, error)
	IsHidden(ctx context.Context, taskID string, viewer models.Actor) (bool, error)
}

type listingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// PoolService lists claimable pool tasks and arbitrates claims. The claim
// race is settled by the repository's locked conditional writes: the service
// adds the permission and visibility guards around them and translates a
// lost race into an invalid-state failure.
type PoolService struct {
	tasks       poolTaskRepo
	assignments poolAssignmentRepo
	visibility  visibilityChecker
	cache       listingCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewPoolService creates a service instance. cache may be nil.
func NewPoolService(tasks poolTaskRepo, assignments poolAssignmentRepo, visibility visibilityChecker, cache listingCache, cacheTTL time.Duration, logger *zap.Logger) *PoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolService{
		tasks:       tasks,
		assignments: assignments,
		visibility:  visibility,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// ListAvailable returns the pool tasks the viewer can see, with claimability
// and cooldown progress computed at now. Results are cached per viewer for a
// short window and invalidated on every claim.
func (s *PoolService) ListAvailable(ctx context.Context, viewer models.Actor, now time.Time) ([]models.PoolTaskView, error) {
	cacheKey := fmt.Sprintf("pool:%s", viewer.UserID)
	if s.cache != nil {
		var cached []models.PoolTaskView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("pool cache lookup failed", zap.Error(err))
		}
	}

	tasks, err := s.tasks.ListPool(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool tasks")
	}

	visible, err := s.visibility.FilterVisible(ctx, tasks, viewer)
	if err != nil {
		return nil, err
	}

	views := make([]models.PoolTaskView, 0, len(visible))
	for _, task := range visible {
		assignments, err := s.assignments.ListByTask(ctx, task.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pool assignments")
		}
		views = append(views, buildPoolView(task, assignments, now))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, views, s.cacheTTL); err != nil {
			s.logger.Warn("pool cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

// Claim binds an unassigned pool task to the viewer. Exactly one of any set
// of concurrent claimers succeeds; the others fail with an invalid-state
// error and may retry against the next cycle.
func (s *PoolService) Claim(ctx context.Context, taskID string, viewer models.Actor, now time.Time) (*models.Assignment, error) {
	if viewer.IsParent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrators cannot claim pool tasks")
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}

	if task.Mode != models.ModePool {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is not a pool task")
	}
	if task.Disabled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is disabled")
	}

	// A hidden task fails the same way as any other permission failure so
	// its existence leaks no differently than a plain forbidden response.
	hidden, err := s.visibility.IsHidden(ctx, taskID, viewer)
	if err != nil {
		return nil, err
	}
	if hidden {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is not claimable by this user")
	}

	existing, err := s.assignments.FindByTaskAndAssignee(ctx, taskID, viewer.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing assignment")
	}

	if existing != nil {
		return s.reclaim(ctx, existing, now)
	}

	claimed := &models.Assignment{TaskID: taskID, AssigneeID: &viewer.UserID}
	if err := s.assignments.ClaimPool(ctx, claimed, now.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is already assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim task")
	}

	s.invalidateListings(ctx)
	return claimed, nil
}

// reclaim reuses the viewer's own assignment row for the next recurrence
// cycle once its cooldown has elapsed.
func (s *PoolService) reclaim(ctx context.Context, existing *models.Assignment, now time.Time) (*models.Assignment, error) {
	if !existing.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no claimable assignment for this task")
	}
	if !recurrence.IsAvailable(existing.NextAvailableAt, now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is still in cooldown")
	}

	if err := s.assignments.Reclaim(ctx, existing.TaskID, existing.ID, now.UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is already assigned")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reclaim task")
	}

	reloaded, err := s.assignments.FindByID(ctx, existing.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload assignment")
	}

	s.invalidateListings(ctx)
	return reloaded, nil
}

func (s *PoolService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "pool:*"); err != nil {
		s.logger.Warn("pool cache invalidation failed", zap.Error(err))
	}
}

func buildPoolView(task models.Task, assignments []models.Assignment, now time.Time) models.PoolTaskView {
	view := models.PoolTaskView{Task: task, Claimable: true, Progress: 100}
	for i := range assignments {
		a := &assignments[i]
		if !a.IsApproved {
			// An open or pending claim holds the task.
			view.Claimable = false
			view.Progress = 0
			view.NextAvailableAt = nil
			return view
		}
		if !recurrence.IsAvailable(a.NextAvailableAt, now) {
			view.Claimable = false
			view.Progress = recurrence.Progress(a.CompletionTime, a.NextAvailableAt, now)
			view.NextAvailableAt = a.NextAvailableAt
		}
	}
	return view
}
