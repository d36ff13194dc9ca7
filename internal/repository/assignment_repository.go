package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/famboard/chores-api/internal/models"
)

// AssignmentRepository persists task-assignee bindings. State transitions
// are written as single statements so no reader observes a half-applied
// transition. The pool claim statements run inside a transaction holding a
// row lock on the task, which serializes concurrent claimers; their guard
// predicates then decide the winner against committed state.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, task_id, assignee_id, is_completed, is_approved, completion_time,
       approval_time, approved_reward_amount, rejection_reason, next_available_at, created_at, updated_at`

// FindByID loads one assignment.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// FindByTaskAndAssignee loads the unique assignment for a (task, assignee) pair.
func (r *AssignmentRepository) FindByTaskAndAssignee(ctx context.Context, taskID, assigneeID string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE task_id = $1 AND assignee_id = $2`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, taskID, assigneeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by task and assignee: %w", err)
	}
	return &assignment, nil
}

// ListByTask returns all assignments for a task.
func (r *AssignmentRepository) ListByTask(ctx context.Context, taskID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE task_id = $1 ORDER BY created_at ASC`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, taskID); err != nil {
		return nil, fmt.Errorf("list assignments by task: %w", err)
	}
	return assignments, nil
}

// ListByAssignee returns a child's assignments enriched with task fields.
func (r *AssignmentRepository) ListByAssignee(ctx context.Context, assigneeID string) ([]models.AssignmentDetail, error) {
	const query = `
SELECT a.id, a.task_id, a.assignee_id, a.is_completed, a.is_approved, a.completion_time,
       a.approval_time, a.approved_reward_amount, a.rejection_reason, a.next_available_at,
       a.created_at, a.updated_at,
       t.title AS task_title, t.disabled AS task_disabled, t.assignment_mode AS task_mode
FROM assignments a
JOIN tasks t ON t.id = a.task_id
WHERE a.assignee_id = $1
ORDER BY a.created_at ASC`
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, assigneeID); err != nil {
		return nil, fmt.Errorf("list assignments by assignee: %w", err)
	}
	return assignments, nil
}

// CountByTask returns the number of assignments bound to a task.
func (r *AssignmentRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE task_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, taskID); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}

// Create inserts a new assignment. The unique index on (task_id, assignee_id)
// backs the one-assignment-per-pair invariant.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, task_id, assignee_id, is_completed, is_approved,
		completion_time, approval_time, approved_reward_amount, rejection_reason, next_available_at,
		created_at, updated_at)
		VALUES (:id, :task_id, :assignee_id, :is_completed, :is_approved, :completion_time,
		:approval_time, :approved_reward_amount, :rejection_reason, :next_available_at,
		:created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update writes the full completion cycle state in one statement.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET is_completed = :is_completed, is_approved = :is_approved,
		completion_time = :completion_time, approval_time = :approval_time,
		approved_reward_amount = :approved_reward_amount, rejection_reason = :rejection_reason,
		next_available_at = :next_available_at, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// lockTask takes a row lock on the task inside tx. Concurrent claimers on
// the same task queue behind the lock, so the guarded claim statements that
// follow always evaluate against committed state.
func lockTask(ctx context.Context, tx *sqlx.Tx, taskID string) error {
	const query = `SELECT id FROM tasks WHERE id = $1 FOR UPDATE`
	var id string
	if err := tx.GetContext(ctx, &id, query, taskID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock task: %w", err)
	}
	return nil
}

// ClaimPool inserts a claim for an unassigned pool task. It runs under the
// task lock, and the NOT EXISTS guard admits the insert only when no other
// assignment blocks the pool; the loser gets sql.ErrNoRows. An assignment
// blocks the pool while it is unapproved, or approved but still inside its
// cooldown window.
func (r *AssignmentRepository) ClaimPool(ctx context.Context, assignment *models.Assignment, now time.Time) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	const query = `INSERT INTO assignments (id, task_id, assignee_id, is_completed, is_approved, created_at, updated_at)
		SELECT $1, $2, $3, FALSE, FALSE, $4, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM assignments
			WHERE task_id = $2
			  AND (is_approved = FALSE OR (next_available_at IS NOT NULL AND next_available_at > $4))
		)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	if err := lockTask(ctx, tx, assignment.TaskID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, query, assignment.ID, assignment.TaskID, assignment.AssigneeID, now)
	if err != nil {
		return fmt.Errorf("claim pool assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check claimed assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

// Reclaim rebinds an approved assignment whose cooldown has elapsed to a new
// cycle. It runs under the same task lock as ClaimPool, and the WHERE clause
// re-checks the row's own precondition plus the absence of any other live
// assignment on the task, so a claim by another child that landed first
// leaves nothing to update and the reclaimer gets sql.ErrNoRows.
func (r *AssignmentRepository) Reclaim(ctx context.Context, taskID, id string, now time.Time) error {
	const query = `UPDATE assignments SET is_completed = FALSE, is_approved = FALSE,
		completion_time = NULL, approval_time = NULL, approved_reward_amount = NULL,
		rejection_reason = NULL, next_available_at = NULL, updated_at = $3
		WHERE id = $2 AND task_id = $1 AND is_approved = TRUE
		  AND (next_available_at IS NULL OR next_available_at <= $3)
		  AND NOT EXISTS (
			SELECT 1 FROM assignments
			WHERE task_id = $1 AND id <> $2
			  AND (is_approved = FALSE OR (next_available_at IS NOT NULL AND next_available_at > $3))
		  )`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reclaim: %w", err)
	}
	defer tx.Rollback()

	if err := lockTask(ctx, tx, taskID); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, query, taskID, id, now)
	if err != nil {
		return fmt.Errorf("reclaim assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reclaimed assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reclaim: %w", err)
	}
	return nil
}

// Delete removes one assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
