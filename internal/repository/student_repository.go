package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursehub-api/internal/models"
)

const studentColumns = `id, principal_id, name, email, phone, password_hash, is_activated, created_at, updated_at`

// StudentRepository provides database access for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "id", id)
}

// FindByPrincipalID returns the student bound to an identity-provider principal.
func (r *StudentRepository) FindByPrincipalID(ctx context.Context, principalID string) (*models.Student, error) {
	return r.findOne(ctx, "principal_id", principalID)
}

func (r *StudentRepository) findOne(ctx context.Context, column, value string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s = $1 LIMIT 1`, studentColumns, column)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return &student, nil
}

// ExistsByEmail checks whether another student already uses email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT 1 FROM students WHERE LOWER(email) = LOWER($1)`
	args := []interface{}{email}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student email: %w", err)
	}
	return true, nil
}

// List returns students based on filters with total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	baseQuery := `FROM students WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Activated != nil {
		conditions = append(conditions, fmt.Sprintf("is_activated = $%d", len(args)+1))
		args = append(args, *filter.Activated)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Pagination
	offset := page.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", studentColumns, baseQuery, page.PageSize, offset)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// CreateWithPrincipal provisions the principal, then inserts the student in its
// transaction. student.PrincipalID is set as soon as provisioning succeeds so
// callers can compensate when a later step fails.
func (r *StudentRepository) CreateWithPrincipal(ctx context.Context, student *models.Student, provision ProvisionFunc) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	principalID, err := provision(ctx)
	if err != nil {
		return fmt.Errorf("provision student principal: %w", err)
	}
	student.PrincipalID = principalID

	return withTx(ctx, r.db, "create student", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, principal_id, name, email, phone, password_hash, is_activated, created_at, updated_at) VALUES (:id, :principal_id, :name, :email, :phone, :password_hash, :is_activated, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return nil
	})
}

// Update persists profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectRow(res, "update student")
}

// SetActivation flips the activation flag.
func (r *StudentRepository) SetActivation(ctx context.Context, id string, activated bool) error {
	const query = `UPDATE students SET is_activated = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, activated, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student activation: %w", err)
	}
	return expectRow(res, "set student activation")
}

// UpdatePasswordHash stores the local password hash.
func (r *StudentRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE students SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	return expectRow(res, "update student password")
}
