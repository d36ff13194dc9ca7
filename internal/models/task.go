package models

import "time"

// RecurrenceKind enumerates how a task repeats after an approved completion.
type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = "NONE"
	RecurrenceDaily   RecurrenceKind = "DAILY"
	RecurrenceWeekly  RecurrenceKind = "WEEKLY"
	RecurrenceMonthly RecurrenceKind = "MONTHLY"
)

// RecurrenceRule describes the repetition schedule of a task. Weekday is
// meaningful only for WEEKLY rules (0 = Sunday), DayOfMonth only for MONTHLY
// rules (1-31, clamped to the target month's last day).
type RecurrenceRule struct {
	Kind       RecurrenceKind `db:"recurrence_kind" json:"kind"`
	Weekday    int            `db:"recurrence_weekday" json:"weekday"`
	DayOfMonth int            `db:"recurrence_day_of_month" json:"day_of_month"`
}

// Recurs reports whether the rule re-locks a task after completion.
func (r RecurrenceRule) Recurs() bool {
	return r.Kind != "" && r.Kind != RecurrenceNone
}

// AssignmentMode controls how assignments may be created for a task.
type AssignmentMode string

const (
	// ModeSingle permits exactly one assignment for the task.
	ModeSingle AssignmentMode = "SINGLE"
	// ModeMultiIndependent permits one assignment per assignee, each with its
	// own completion cycle.
	ModeMultiIndependent AssignmentMode = "MULTI_INDEPENDENT"
	// ModePool leaves the task unassigned until a child claims it.
	ModePool AssignmentMode = "POOL"
)

// Task is a unit of chore work with reward terms and a recurrence rule.
// Reward is either fixed (RewardAmount) or a range (MinReward/MaxReward)
// resolved to an actual amount at approval time.
type Task struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	RewardAmount *float64       `db:"reward_amount" json:"reward_amount,omitempty"`
	MinReward    *float64       `db:"min_reward" json:"min_reward,omitempty"`
	MaxReward    *float64       `db:"max_reward" json:"max_reward,omitempty"`
	RecurrenceRule
	Mode         AssignmentMode `db:"assignment_mode" json:"assignment_mode"`
	Disabled     bool           `db:"disabled" json:"disabled"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRewardRange reports whether the reward is resolved at approval time.
func (t *Task) HasRewardRange() bool {
	return t.MinReward != nil && t.MaxReward != nil
}

// AdministeredBy reports whether the actor created (and therefore
// administers) the task.
func (t *Task) AdministeredBy(actor Actor) bool {
	return actor.IsParent() && t.CreatedBy == actor.UserID
}

// PoolTaskView is the child-facing listing entry for claimable pool tasks.
type PoolTaskView struct {
	Task            Task       `json:"task"`
	Claimable       bool       `json:"claimable"`
	Progress        int        `json:"progress"`
	NextAvailableAt *time.Time `json:"next_available_at,omitempty"`
}
