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

// VisibilityRepository persists per-(task, user) hide overrides.
type VisibilityRepository struct {
	db *sqlx.DB
}

// NewVisibilityRepository constructs the repository.
func NewVisibilityRepository(db *sqlx.DB) *VisibilityRepository {
	return &VisibilityRepository{db: db}
}

// Upsert creates or updates the entry for a (task, user) pair.
func (r *VisibilityRepository) Upsert(ctx context.Context, entry *models.TaskVisibility) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	const query = `INSERT INTO task_visibility (id, task_id, user_id, is_hidden, created_at, updated_at)
		VALUES (:id, :task_id, :user_id, :is_hidden, :created_at, :updated_at)
		ON CONFLICT (task_id, user_id)
		DO UPDATE SET is_hidden = EXCLUDED.is_hidden, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert task visibility: %w", err)
	}
	return nil
}

// IsHidden reports whether the task carries an active hide entry for the user.
func (r *VisibilityRepository) IsHidden(ctx context.Context, taskID, userID string) (bool, error) {
	const query = `SELECT is_hidden FROM task_visibility WHERE task_id = $1 AND user_id = $2`
	var hidden bool
	if err := r.db.GetContext(ctx, &hidden, query, taskID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check task visibility: %w", err)
	}
	return hidden, nil
}

// HiddenTaskIDs returns the ids of every task hidden from the user.
func (r *VisibilityRepository) HiddenTaskIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT task_id FROM task_visibility WHERE user_id = $1 AND is_hidden = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list hidden task ids: %w", err)
	}
	return ids, nil
}

// ListByTask returns all visibility entries for a task.
func (r *VisibilityRepository) ListByTask(ctx context.Context, taskID string) ([]models.TaskVisibility, error) {
	const query = `SELECT id, task_id, user_id, is_hidden, created_at, updated_at
		FROM task_visibility WHERE task_id = $1 ORDER BY created_at ASC`
	var entries []models.TaskVisibility
	if err := r.db.SelectContext(ctx, &entries, query, taskID); err != nil {
		return nil, fmt.Errorf("list task visibility: %w", err)
	}
	return entries, nil
}
