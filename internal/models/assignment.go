package models

import "time"

// Assignment binds one task to one assignee and carries its own completion,
// approval and cooldown state. AssigneeID is nil only transiently for pool
// tasks before they are claimed. No two assignments share the same
// (task, assignee) pair.
type Assignment struct {
	ID                   string     `db:"id" json:"id"`
	TaskID               string     `db:"task_id" json:"task_id"`
	AssigneeID           *string    `db:"assignee_id" json:"assignee_id,omitempty"`
	IsCompleted          bool       `db:"is_completed" json:"is_completed"`
	IsApproved           bool       `db:"is_approved" json:"is_approved"`
	CompletionTime       *time.Time `db:"completion_time" json:"completion_time,omitempty"`
	ApprovalTime         *time.Time `db:"approval_time" json:"approval_time,omitempty"`
	ApprovedRewardAmount *float64   `db:"approved_reward_amount" json:"approved_reward_amount,omitempty"`
	RejectionReason      *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	NextAvailableAt      *time.Time `db:"next_available_at" json:"next_available_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// AssignedTo reports whether the assignment is bound to the given user.
func (a *Assignment) AssignedTo(userID string) bool {
	return a.AssigneeID != nil && *a.AssigneeID == userID
}

// ClearCycle wipes the completion, approval and cooldown fields so the same
// row can carry the next recurrence cycle.
func (a *Assignment) ClearCycle() {
	a.IsCompleted = false
	a.IsApproved = false
	a.CompletionTime = nil
	a.ApprovalTime = nil
	a.ApprovedRewardAmount = nil
	a.RejectionReason = nil
	a.NextAvailableAt = nil
}

// AssignmentDetail enriches assignments with task fields for listings.
type AssignmentDetail struct {
	Assignment
	TaskTitle    string         `db:"task_title" json:"task_title"`
	TaskDisabled bool           `db:"task_disabled" json:"task_disabled"`
	TaskMode     AssignmentMode `db:"task_mode" json:"task_mode"`
	AssigneeName *string        `db:"assignee_name" json:"assignee_name,omitempty"`
}

// AssignmentView is an assignment listing entry with availability computed
// for the requesting moment.
type AssignmentView struct {
	AssignmentDetail
	IsAvailable bool `json:"is_available"`
	Progress    int  `json:"progress"`
}
