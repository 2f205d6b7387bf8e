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

// AdminRepository provides database access for administrators.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByPrincipalID returns the admin bound to a principal.
func (r *AdminRepository) FindByPrincipalID(ctx context.Context, principalID string) (*models.Admin, error) {
	const query = `SELECT id, principal_id, name, email, created_at FROM admins WHERE principal_id = $1 LIMIT 1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, principalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by principal: %w", err)
	}
	return &admin, nil
}

// CreateWithPrincipal provisions the principal before opening the transaction
// that inserts the admin, so no pooled connection is held across provisioning.
func (r *AdminRepository) CreateWithPrincipal(ctx context.Context, admin *models.Admin, provision ProvisionFunc) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = time.Now().UTC()

	principalID, err := provision(ctx)
	if err != nil {
		return fmt.Errorf("provision admin principal: %w", err)
	}
	admin.PrincipalID = principalID

	return withTx(ctx, r.db, "create admin", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO admins (id, principal_id, name, email, created_at) VALUES (:id, :principal_id, :name, :email, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		return nil
	})
}
