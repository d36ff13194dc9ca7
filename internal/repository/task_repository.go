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

// TaskRepository persists chore tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, title, description, created_by, reward_amount, min_reward, max_reward,
       recurrence_kind, recurrence_weekday, recurrence_day_of_month, assignment_mode, disabled,
       created_at, updated_at`

// FindByID loads one task.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// ListByCreator returns every task administered by the given parent.
func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE created_by = $1 ORDER BY created_at ASC`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, creatorID); err != nil {
		return nil, fmt.Errorf("list tasks by creator: %w", err)
	}
	return tasks, nil
}

// ListPool returns enabled pool-mode tasks.
func (r *TaskRepository) ListPool(ctx context.Context) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assignment_mode = $1 AND disabled = FALSE ORDER BY created_at ASC`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, models.ModePool); err != nil {
		return nil, fmt.Errorf("list pool tasks: %w", err)
	}
	return tasks, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	const query = `INSERT INTO tasks (id, title, description, created_by, reward_amount, min_reward,
		max_reward, recurrence_kind, recurrence_weekday, recurrence_day_of_month, assignment_mode,
		disabled, created_at, updated_at)
		VALUES (:id, :title, :description, :created_by, :reward_amount, :min_reward, :max_reward,
		:recurrence_kind, :recurrence_weekday, :recurrence_day_of_month, :assignment_mode,
		:disabled, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update rewrites the mutable task fields.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description,
		reward_amount = :reward_amount, min_reward = :min_reward, max_reward = :max_reward,
		recurrence_kind = :recurrence_kind, recurrence_weekday = :recurrence_weekday,
		recurrence_day_of_month = :recurrence_day_of_month, assignment_mode = :assignment_mode,
		disabled = :disabled, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDisabled toggles the disabled flag without touching other fields.
func (r *TaskRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	const query = `UPDATE tasks SET disabled = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, disabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("toggle task disabled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check toggled task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a task together with its assignments and visibility
// entries in one transaction.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_visibility WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("delete task visibility: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("delete task assignments: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
