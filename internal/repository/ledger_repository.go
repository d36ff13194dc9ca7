package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/famboard/chores-api/internal/models"
)

// LedgerRepository persists the allowance reward ledger.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create appends one reward entry.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.RewardEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reward_entries (id, assignment_id, task_id, child_id, amount, recorded_at)
		VALUES (:id, :assignment_id, :task_id, :child_id, :amount, :recorded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create reward entry: %w", err)
	}
	return nil
}

// ListByChild returns a child's entries newest first, enriched with task titles.
func (r *LedgerRepository) ListByChild(ctx context.Context, childID string) ([]models.RewardEntryDetail, error) {
	const query = `
SELECT e.id, e.assignment_id, e.task_id, e.child_id, e.amount, e.recorded_at,
       t.title AS task_title
FROM reward_entries e
JOIN tasks t ON t.id = e.task_id
WHERE e.child_id = $1
ORDER BY e.recorded_at DESC`
	var entries []models.RewardEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, childID); err != nil {
		return nil, fmt.Errorf("list reward entries: %w", err)
	}
	return entries, nil
}

// BalanceByChild aggregates a child's ledger.
func (r *LedgerRepository) BalanceByChild(ctx context.Context, childID string) (*models.ChildBalance, error) {
	const query = `SELECT $1 AS child_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS entry_count
		FROM reward_entries WHERE child_id = $1`
	var balance models.ChildBalance
	if err := r.db.GetContext(ctx, &balance, query, childID); err != nil {
		return nil, fmt.Errorf("balance reward entries: %w", err)
	}
	return &balance, nil
}
