package models

import "time"

// TaskVisibility is a per-(task, user) override hiding a task from that
// user's listings. Absence of a row means visible. Only the task's
// administrator writes these entries; they are consulted only for
// non-administrator viewers.
type TaskVisibility struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	IsHidden  bool      `db:"is_hidden" json:"is_hidden"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
