package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/famboard/chores-api/internal/models"
	"github.com/famboard/chores-api/internal/recurrence"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type taskReader interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

type assignmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListByAssignee(ctx context.Context, assigneeID string) ([]models.AssignmentDetail, error)
	Update(ctx context.Context, assignment *models.Assignment) error
}

type hiddenLister interface {
	HiddenTaskIDs(ctx context.Context, userID string) ([]string, error)
}

type rewardRecorder interface {
	Create(ctx context.Context, entry *models.RewardEntry) error
}

// ChoreService is the assignment state machine. Every operation takes the
// acting user and the current time explicitly, validates the transition
// against the loaded state and writes the whole new state back in one
// repository call. It never logs a domain failure; failures are returned to
// the caller as typed errors.
type ChoreService struct {
	tasks       taskReader
	assignments assignmentStore
	ledger      rewardRecorder
	hidden      hiddenLister
	loc         *time.Location
	logger      *zap.Logger
}

// NewChoreService creates a service instance. ledger may be nil when payout
// bookkeeping is not wired; hidden may be nil when visibility filtering is
// not wired.
func NewChoreService(tasks taskReader, assignments assignmentStore, ledger rewardRecorder, hidden hiddenLister, loc *time.Location, logger *zap.Logger) *ChoreService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChoreService{tasks: tasks, assignments: assignments, ledger: ledger, hidden: hidden, loc: loc, logger: logger}
}

// Complete marks an assignment done by its assignee. A previously approved
// assignment whose cooldown has elapsed is reset and re-completed in the
// same transition, so no intermediate state is ever observable. Pool
// assignments are excluded from that shortcut: their next cycle is handed
// out by the claim arbiter, never by a repeat completion.
func (s *ChoreService) Complete(ctx context.Context, assignmentID string, actor models.Actor, now time.Time) (*models.Assignment, error) {
	assignment, task, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !assignment.AssignedTo(actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assignee may complete this task")
	}
	if task.Disabled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is disabled")
	}

	if assignment.IsCompleted {
		if !assignment.IsApproved {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "completion is pending approval")
		}
		if task.Mode == models.ModePool {
			// Another child may already hold the next cycle; only the claim
			// arbiter can hand this row a new one.
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "a new pool cycle must be claimed first")
		}
		if !recurrence.IsAvailable(assignment.NextAvailableAt, now) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task is still in cooldown")
		}
		assignment.ClearCycle()
	}

	completedAt := now.UTC()
	assignment.IsCompleted = true
	assignment.CompletionTime = &completedAt
	assignment.RejectionReason = nil
	if task.Recurs() {
		next, err := recurrence.NextAvailable(completedAt, task.RecurrenceRule, s.loc)
		if err != nil {
			return nil, err
		}
		assignment.NextAvailableAt = next
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.storeError(err, "failed to store completion")
	}
	return assignment, nil
}

// Approve accepts a completed assignment and fixes the payout amount. For
// range-reward tasks rewardValue is mandatory and must fall inside the
// range; for fixed-reward tasks it defaults to the task's amount.
func (s *ChoreService) Approve(ctx context.Context, assignmentID string, actor models.Actor, rewardValue *float64, now time.Time) (*models.Assignment, error) {
	assignment, task, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may approve")
	}
	if !assignment.IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "assignment is not completed")
	}
	if assignment.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "assignment is already approved")
	}

	amount, err := resolveReward(task, rewardValue)
	if err != nil {
		return nil, err
	}

	approvedAt := now.UTC()
	assignment.IsApproved = true
	assignment.ApprovalTime = &approvedAt
	assignment.ApprovedRewardAmount = &amount

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.storeError(err, "failed to store approval")
	}

	if s.ledger != nil && assignment.AssigneeID != nil {
		entry := &models.RewardEntry{
			AssignmentID: assignment.ID,
			TaskID:       task.ID,
			ChildID:      *assignment.AssigneeID,
			Amount:       amount,
			RecordedAt:   approvedAt,
		}
		if err := s.ledger.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record reward entry",
				zap.String("assignment_id", assignment.ID), zap.Error(err))
		}
	}

	return assignment, nil
}

// Reject sends a completed assignment back to the assignee. No cooldown is
// applied: the assignee may complete again immediately.
func (s *ChoreService) Reject(ctx context.Context, assignmentID string, actor models.Actor, reason string, now time.Time) (*models.Assignment, error) {
	assignment, task, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may reject")
	}
	if !assignment.IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "assignment is not completed")
	}
	if assignment.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "assignment is already approved")
	}

	assignment.IsCompleted = false
	assignment.NextAvailableAt = nil
	if reason != "" {
		assignment.RejectionReason = &reason
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.storeError(err, "failed to store rejection")
	}
	return assignment, nil
}

// Reset unconditionally clears an assignment's cycle. Administrator-only;
// used to manually unlock a task outside the normal cooldown flow.
func (s *ChoreService) Reset(ctx context.Context, assignmentID string, actor models.Actor) (*models.Assignment, error) {
	assignment, task, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if !task.AdministeredBy(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the task administrator may reset")
	}

	assignment.ClearCycle()

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, s.storeError(err, "failed to store reset")
	}
	return assignment, nil
}

// ListMine returns the actor's assignments with availability computed at
// now. Assignments whose task is hidden from the actor are dropped.
func (s *ChoreService) ListMine(ctx context.Context, actor models.Actor, now time.Time) ([]models.AssignmentView, error) {
	details, err := s.assignments.ListByAssignee(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	hidden := map[string]struct{}{}
	if s.hidden != nil && !actor.IsParent() {
		ids, err := s.hidden.HiddenTaskIDs(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visibility entries")
		}
		for _, id := range ids {
			hidden[id] = struct{}{}
		}
	}

	views := make([]models.AssignmentView, 0, len(details))
	for _, detail := range details {
		if _, ok := hidden[detail.TaskID]; ok {
			continue
		}
		available, progress := s.Availability(&detail.Assignment, now)
		if detail.TaskDisabled {
			available = false
		}
		views = append(views, models.AssignmentView{AssignmentDetail: detail, IsAvailable: available, Progress: progress})
	}
	return views, nil
}

// Availability reports whether the assignment can be completed at now, and
// how far its cooldown has advanced.
func (s *ChoreService) Availability(assignment *models.Assignment, now time.Time) (bool, int) {
	available := recurrence.IsAvailable(assignment.NextAvailableAt, now)
	progress := recurrence.Progress(assignment.CompletionTime, assignment.NextAvailableAt, now)
	return available, progress
}

func (s *ChoreService) load(ctx context.Context, assignmentID string) (*models.Assignment, *models.Task, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	task, err := s.tasks.FindByID(ctx, assignment.TaskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return assignment, task, nil
}

func (s *ChoreService) storeError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment no longer exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func resolveReward(task *models.Task, rewardValue *float64) (float64, error) {
	if task.HasRewardRange() {
		if rewardValue == nil {
			return 0, appErrors.Clone(appErrors.ErrValidation, "reward value is required for range-reward tasks")
		}
		if *rewardValue < *task.MinReward || *rewardValue > *task.MaxReward {
			return 0, appErrors.Clone(appErrors.ErrValidation, "reward value is outside the allowed range")
		}
		return *rewardValue, nil
	}
	if rewardValue != nil {
		return *rewardValue, nil
	}
	if task.RewardAmount != nil {
		return *task.RewardAmount, nil
	}
	return 0, nil
}
