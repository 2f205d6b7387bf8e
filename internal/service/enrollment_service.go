package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/export"
)

type enrollmentStore interface {
	Assign(ctx context.Context, studentID, courseID string) (bool, error)
	Unassign(ctx context.Context, studentID, courseID string) (bool, error)
	ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error)
	FindCourseForStudent(ctx context.Context, studentID, slug string) (*models.Course, error)
	ListStudentsForCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error)
	ListCourseIDsForStudent(ctx context.Context, studentID string) ([]string, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type segmentFinder interface {
	FindBySlug(ctx context.Context, courseID, slug string) (*models.Segment, error)
	ListByCourse(ctx context.Context, courseID string, publicOnly bool) ([]models.Segment, error)
}

// RosterExport is a rendered course roster.
type RosterExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// EnrollmentService manages student to course assignments and the student view of content.
type EnrollmentService struct {
	repo        enrollmentStore
	students    studentFinder
	courses     courseFinder
	segments    segmentFinder
	exportTitle string
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, students studentFinder, courses courseFinder, segments segmentFinder, exportTitle string, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exportTitle == "" {
		exportTitle = "Course roster"
	}
	return &EnrollmentService{
		repo:        repo,
		students:    students,
		courses:     courses,
		segments:    segments,
		exportTitle: exportTitle,
		logger:      logger,
	}
}

// Assign enrolls an activated student. Assigning twice leaves one enrollment.
func (s *EnrollmentService) Assign(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	student, course, err := s.load(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if !student.IsActivated {
		return nil, appErrors.Clone(appErrors.ErrStudentInactive, "only activated students can be assigned to courses")
	}
	created, err := s.repo.Assign(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to assign course")
	}
	if created {
		s.logger.Info("student assigned", zap.String("student_id", studentID), zap.String("course_id", courseID))
	}
	return course, nil
}

// Unassign removes an enrollment if present.
func (s *EnrollmentService) Unassign(ctx context.Context, studentID, courseID string) (*models.Course, error) {
	_, course, err := s.load(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Unassign(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to unassign course")
	}
	if removed {
		s.logger.Info("student unassigned", zap.String("student_id", studentID), zap.String("course_id", courseID))
	}
	return course, nil
}

// UpdateAssignment assigns or unassigns depending on assigned.
func (s *EnrollmentService) UpdateAssignment(ctx context.Context, studentID, courseID string, assigned bool) (*models.Course, error) {
	if assigned {
		return s.Assign(ctx, studentID, courseID)
	}
	return s.Unassign(ctx, studentID, courseID)
}

// ListCoursesForStudent returns the public courses the student is enrolled in.
func (s *EnrollmentService) ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	courses, err := s.repo.ListCoursesForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, nil
}

// ListCourseIDsForStudent returns every assigned course id regardless of visibility.
func (s *EnrollmentService) ListCourseIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	ids, err := s.repo.ListCourseIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	return ids, nil
}

// ListStudentsForCourse returns the roster of a course regardless of visibility.
func (s *EnrollmentService) ListStudentsForCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	roster, err := s.repo.ListStudentsForCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list course students")
	}
	return roster, nil
}

// Roster resolves a course by slug and returns it with its roster.
func (s *EnrollmentService) Roster(ctx context.Context, courseSlug string) (*models.Course, []models.RosterEntry, error) {
	course, err := s.courseBySlug(ctx, courseSlug)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.ListStudentsForCourse(ctx, course.ID)
	if err != nil {
		return nil, nil, err
	}
	return course, roster, nil
}

// ExportRoster renders the roster of a course as CSV or PDF.
func (s *EnrollmentService) ExportRoster(ctx context.Context, courseSlug string, format export.Format) (*RosterExport, error) {
	course, roster, err := s.Roster(ctx, courseSlug)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("%s: %s", s.exportTitle, course.Name),
		Headers: []string{"Name", "Email", "Activated", "Enrolled At"},
		Rows:    make([]map[string]string, 0, len(roster)),
	}
	for _, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":        entry.Name,
			"Email":       entry.Email,
			"Activated":   yesNo(entry.IsActivated),
			"Enrolled At": entry.EnrolledAt.UTC().Format(time.RFC3339),
		})
	}

	exporter := export.For(format)
	body, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}
	return &RosterExport{
		Filename:    fmt.Sprintf("%s-roster.%s", course.Slug, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

// CourseForStudent returns an enrolled public course with its public segments.
// Courses the student cannot see are reported as not found.
func (s *EnrollmentService) CourseForStudent(ctx context.Context, studentID, courseSlug string) (*models.CourseDetail, error) {
	course, err := s.visibleCourse(ctx, studentID, courseSlug)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByCourse(ctx, course.ID, true)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list segments")
	}
	return &models.CourseDetail{Course: *course, Segments: segments}, nil
}

// SegmentForStudent returns a public segment of a course visible to the student.
func (s *EnrollmentService) SegmentForStudent(ctx context.Context, studentID, courseSlug, segmentSlug string) (*models.Segment, error) {
	course, err := s.visibleCourse(ctx, studentID, courseSlug)
	if err != nil {
		return nil, err
	}
	segment, err := s.segments.FindBySlug(ctx, course.ID, segmentSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
		}
		return nil, appErrors.Internal(err, "failed to load segment")
	}
	if !segment.IsPublic {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
	}
	return segment, nil
}

func (s *EnrollmentService) visibleCourse(ctx context.Context, studentID, courseSlug string) (*models.Course, error) {
	course, err := s.repo.FindCourseForStudent(ctx, studentID, courseSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) load(ctx context.Context, studentID, courseID string) (*models.Student, *models.Course, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load course")
	}
	return student, course, nil
}

func (s *EnrollmentService) student(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func (s *EnrollmentService) courseBySlug(ctx context.Context, courseSlug string) (*models.Course, error) {
	course, err := s.courses.FindBySlug(ctx, strings.TrimSpace(courseSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
