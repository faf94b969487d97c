package types

import "time"

// User represents an account in the system.
// Students, teachers and administrators all live in the same table and are
// told apart by RoleID.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	// RoleID references the roles table and acts as the role discriminator.
	RoleID int `json:"roleId" db:"role_id"`

	// IsActive is the system-access flag toggled by status reviews.
	IsActive bool `json:"isActive" db:"is_active"`

	// LastLogin is stamped by the auth layer on every successful login.
	LastLogin *time.Time `json:"lastLogin,omitempty" db:"last_login"`

	// ReporterID points at the user considered responsible for this one.
	// It is a display-only back-reference, not ownership.
	ReporterID *int `json:"reporterId,omitempty" db:"reporter_id"`

	// StatusLastReviewedAt is when IsActive was last set by a reviewer.
	StatusLastReviewedAt *time.Time `json:"statusLastReviewedAt,omitempty" db:"status_last_reviewed_dt"`

	// StatusLastReviewerID is the user who performed the last status review.
	StatusLastReviewerID *int `json:"statusLastReviewerId,omitempty" db:"status_last_reviewer_id"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_dt"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_dt"`
}

// Role is a named role from the roles table.
type Role struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
