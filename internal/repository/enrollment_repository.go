package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/coursehub-api/internal/models"
)

// EnrollmentRepository handles persistence of student to course assignments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Assign inserts the pair if absent. It reports whether a row was created.
func (r *EnrollmentRepository) Assign(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `INSERT INTO enrollments (student_id, course_id, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (student_id, course_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("assign enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign enrollment rows affected: %w", err)
	}
	return n > 0, nil
}

// Unassign removes the pair if present. It reports whether a row was removed.
func (r *EnrollmentRepository) Unassign(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID)
	if err != nil {
		return false, fmt.Errorf("unassign enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unassign enrollment rows affected: %w", err)
	}
	return n > 0, nil
}

// ListCoursesForStudent returns courses the student is enrolled in that are currently public.
func (r *EnrollmentRepository) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.description, c.slug, c.is_public, c.created_at, c.updated_at
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.student_id = $1 AND c.is_public = TRUE
        ORDER BY c.name ASC`
	courses := make([]models.Course, 0)
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// FindCourseForStudent returns the course with slug only when the student is
// enrolled and the course is public; otherwise sql.ErrNoRows.
func (r *EnrollmentRepository) FindCourseForStudent(ctx context.Context, studentID, slug string) (*models.Course, error) {
	const query = `SELECT c.id, c.name, c.description, c.slug, c.is_public, c.created_at, c.updated_at
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.student_id = $1 AND c.slug = $2 AND c.is_public = TRUE
        LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, studentID, slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student course: %w", err)
	}
	return &course, nil
}

// ListStudentsForCourse returns the roster regardless of course visibility.
func (r *EnrollmentRepository) ListStudentsForCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.name, s.email, s.is_activated, e.created_at AS enrolled_at
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE e.course_id = $1
        ORDER BY s.name ASC`
	roster := make([]models.RosterEntry, 0)
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return roster, nil
}

// ListCourseIDsForStudent returns every course id the student is assigned to.
func (r *EnrollmentRepository) ListCourseIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT course_id FROM enrollments WHERE student_id = $1 ORDER BY created_at ASC`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student course ids: %w", err)
	}
	return ids, nil
}
