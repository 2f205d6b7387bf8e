package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// PrincipalRepository stores identity-provider accounts.
type PrincipalRepository struct {
	db *sqlx.DB
}

// NewPrincipalRepository creates a new instance of PrincipalRepository.
func NewPrincipalRepository(db *sqlx.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// FindByEmail returns a principal by email address, case-insensitively.
func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*models.Principal, error) {
	const query = `SELECT id, email, password_hash, attributes, created_at, updated_at FROM principals WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var p models.Principal
	if err := r.db.GetContext(ctx, &p, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find principal by email: %w", err)
	}
	return &p, nil
}

// FindByID returns a principal by identifier.
func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	const query = `SELECT id, email, password_hash, attributes, created_at, updated_at FROM principals WHERE id = $1 LIMIT 1`
	var p models.Principal
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find principal by id: %w", err)
	}
	return &p, nil
}

// Create inserts a principal.
func (r *PrincipalRepository) Create(ctx context.Context, p *models.Principal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if len(p.Attributes) == 0 {
		p.Attributes = []byte("{}")
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	const query = `INSERT INTO principals (id, email, password_hash, attributes, created_at, updated_at) VALUES (:id, :email, :password_hash, :attributes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create principal: %w", err)
	}
	return nil
}

// Delete removes a principal; deleting a missing principal is not an error.
func (r *PrincipalRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM principals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete principal: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *PrincipalRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE principals SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update principal password: %w", err)
	}
	return expectRow(res, "update principal password")
}

// UpdateEmail changes the login email.
func (r *PrincipalRepository) UpdateEmail(ctx context.Context, id, email string) error {
	const query = `UPDATE principals SET email = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update principal email: %w", err)
	}
	return expectRow(res, "update principal email")
}
