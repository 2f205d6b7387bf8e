package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the resolved caller of a request. The zero value is an
// unauthenticated caller with RoleNone.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	PrincipalID   string `json:"principal_id,omitempty"`
	Role          Role   `json:"role"`
	// SubjectID is the admin or student record id backing the role.
	SubjectID string `json:"subject_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Token     string `json:"-"`
}

// Anonymous returns an unauthenticated identity.
func Anonymous() Identity {
	return Identity{Role: RoleNone}
}

// Is reports whether the identity is authenticated with role r.
func (i Identity) Is(r Role) bool {
	return i.Authenticated && i.Role == r
}

// Principal is an identity-provider account.
type Principal struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Attributes   []byte    `db:"attributes" json:"attributes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Session is an issued identity-provider session.
type Session struct {
	ID          string    `json:"-"`
	PrincipalID string    `json:"principal_id"`
	Token       string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionClaims is the JWT payload of a session token. It carries no role:
// roles are resolved from data on every request.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
