package models

import "time"

// RewardEntry records one approved payout in the allowance ledger.
type RewardEntry struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	TaskID       string    `db:"task_id" json:"task_id"`
	ChildID      string    `db:"child_id" json:"child_id"`
	Amount       float64   `db:"amount" json:"amount"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}

// RewardEntryDetail enriches entries with task titles for statements.
type RewardEntryDetail struct {
	RewardEntry
	TaskTitle string `db:"task_title" json:"task_title"`
}

// ChildBalance aggregates a child's ledger.
type ChildBalance struct {
	ChildID    string  `db:"child_id" json:"child_id"`
	Total      float64 `db:"total" json:"total"`
	EntryCount int     `db:"entry_count" json:"entry_count"`
}
