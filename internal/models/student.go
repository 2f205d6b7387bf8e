package models

import "time"

// Student is a learner account managed by admins.
type Student struct {
	ID          string  `db:"id" json:"id"`
	PrincipalID string  `db:"principal_id" json:"principal_id"`
	Name        string  `db:"name" json:"name"`
	Email       string  `db:"email" json:"email"`
	Phone       *string `db:"phone" json:"phone,omitempty"`
	// PasswordHash is kept for schema compatibility; sessions never consult it.
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActivated  bool      `db:"is_activated" json:"is_activated"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	Search    string
	Activated *bool
	Pagination
}
