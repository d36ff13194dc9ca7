package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	// RoleParent administers tasks and approves completions.
	RoleParent UserRole = "PARENT"
	// RoleChild works on and completes assigned tasks.
	RoleChild UserRole = "CHILD"
)

// User represents an application user stored in the users table.
// Children carry a reference to the parent that administers them.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	ParentID     *string    `db:"parent_id" json:"parent_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor identifies the user performing an engine operation. The engine never
// reads identity from ambient state; callers build an Actor from verified
// claims and pass it in.
type Actor struct {
	UserID string
	Role   UserRole
}

// IsParent reports whether the actor holds the administrative role.
func (a Actor) IsParent() bool {
	return a.Role == RoleParent
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
