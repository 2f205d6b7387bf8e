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

const segmentColumns = `id, course_id, name, description, video_url, slug, is_public, created_at, updated_at`

// SegmentRepository provides database access for course segments.
type SegmentRepository struct {
	db *sqlx.DB
}

// NewSegmentRepository creates a new instance of SegmentRepository.
func NewSegmentRepository(db *sqlx.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// FindByID returns a segment by identifier.
func (r *SegmentRepository) FindByID(ctx context.Context, id string) (*models.Segment, error) {
	const query = `SELECT ` + segmentColumns + ` FROM segments WHERE id = $1 LIMIT 1`
	var segment models.Segment
	if err := r.db.GetContext(ctx, &segment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find segment by id: %w", err)
	}
	return &segment, nil
}

// FindBySlug returns the segment with slug inside the given course.
func (r *SegmentRepository) FindBySlug(ctx context.Context, courseID, slug string) (*models.Segment, error) {
	const query = `SELECT ` + segmentColumns + ` FROM segments WHERE course_id = $1 AND slug = $2 LIMIT 1`
	var segment models.Segment
	if err := r.db.GetContext(ctx, &segment, query, courseID, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find segment by slug: %w", err)
	}
	return &segment, nil
}

// ExistsBySlug checks slug uniqueness scoped to a single course.
func (r *SegmentRepository) ExistsBySlug(ctx context.Context, courseID, slug, excludeID string) (bool, error) {
	query := `SELECT 1 FROM segments WHERE course_id = $1 AND slug = $2`
	args := []interface{}{courseID, slug}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check segment slug: %w", err)
	}
	return true, nil
}

// ListByCourse returns the segments of a course, optionally only public ones.
func (r *SegmentRepository) ListByCourse(ctx context.Context, courseID string, publicOnly bool) ([]models.Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE course_id = $1`
	if publicOnly {
		query += ` AND is_public = TRUE`
	}
	query += ` ORDER BY created_at ASC`
	segments := make([]models.Segment, 0)
	if err := r.db.SelectContext(ctx, &segments, query, courseID); err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return segments, nil
}

// Create inserts a new segment.
func (r *SegmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	if segment.ID == "" {
		segment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	segment.CreatedAt = now
	segment.UpdatedAt = now

	const query = `INSERT INTO segments (id, course_id, name, description, video_url, slug, is_public, created_at, updated_at) VALUES (:id, :course_id, :name, :description, :video_url, :slug, :is_public, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, segment); err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	return nil
}

// Update persists name, description, video url and slug.
func (r *SegmentRepository) Update(ctx context.Context, segment *models.Segment) error {
	segment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE segments SET name = :name, description = :description, video_url = :video_url, slug = :slug, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, segment)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	return expectRow(res, "update segment")
}

// SetVisibility flips the public flag.
func (r *SegmentRepository) SetVisibility(ctx context.Context, id string, public bool) error {
	const query = `UPDATE segments SET is_public = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, public, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set segment visibility: %w", err)
	}
	return expectRow(res, "set segment visibility")
}

// Delete removes a segment.
func (r *SegmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM segments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	return expectRow(res, "delete segment")
}
