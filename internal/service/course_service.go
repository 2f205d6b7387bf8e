package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/pkg/database"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/slug"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
	ExistsBySlug(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetVisibility(ctx context.Context, id string, public bool) error
	DeleteCascade(ctx context.Context, id string) error
}

type segmentLister interface {
	ListByCourse(ctx context.Context, courseID string, publicOnly bool) ([]models.Segment, error)
}

// CourseService manages the top level of the content hierarchy.
type CourseService struct {
	repo     courseStore
	segments segmentLister
	logger   *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseStore, segments segmentLister, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, segments: segments, logger: logger}
}

// List returns every course, public or not.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	return courses, nil
}

// GetBySlug returns a course with all of its segments.
func (s *CourseService) GetBySlug(ctx context.Context, courseSlug string) (*models.CourseDetail, error) {
	course, err := s.findBySlug(ctx, courseSlug)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByCourse(ctx, course.ID, false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list segments")
	}
	return &models.CourseDetail{Course: *course, Segments: segments}, nil
}

// Create derives the slug from name and inserts a private course.
func (s *CourseService) Create(ctx context.Context, name, description string) (*models.Course, error) {
	name = strings.TrimSpace(name)
	courseSlug, err := nameSlug(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, courseSlug, ""); err != nil {
		return nil, err
	}

	course := &models.Course{Name: name, Description: strings.TrimSpace(description), Slug: courseSlug}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, s.writeError(err, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("slug", course.Slug))
	return course, nil
}

// Update changes name and description. The slug is recomputed only when the
// name changes, and uniqueness is re-checked only when the slug moves.
func (s *CourseService) Update(ctx context.Context, id, name, description string) (*models.Course, error) {
	course, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name != course.Name {
		newSlug, err := nameSlug(name)
		if err != nil {
			return nil, err
		}
		if newSlug != course.Slug {
			if err := s.ensureSlugFree(ctx, newSlug, course.ID); err != nil {
				return nil, err
			}
			course.Slug = newSlug
		}
		course.Name = name
	}
	course.Description = strings.TrimSpace(description)

	if err := s.repo.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.writeError(err, "failed to update course")
	}
	return course, nil
}

// SetVisibility publishes or hides a course. Repeating the current value succeeds.
func (s *CourseService) SetVisibility(ctx context.Context, id string, public bool) (*models.Course, error) {
	course, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetVisibility(ctx, id, public); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to update course visibility")
	}
	course.IsPublic = public
	return course, nil
}

// Delete removes the course with its segments and enrollments, all or nothing.
func (s *CourseService) Delete(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_id", course.ID), zap.String("slug", course.Slug))
	return course, nil
}

func (s *CourseService) findByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) findBySlug(ctx context.Context, courseSlug string) (*models.Course, error) {
	course, err := s.repo.FindBySlug(ctx, courseSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) ensureSlugFree(ctx context.Context, courseSlug, excludeID string) error {
	exists, err := s.repo.ExistsBySlug(ctx, courseSlug, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check course slug")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a course with this name already exists")
	}
	return nil
}

func (s *CourseService) writeError(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a course with this name already exists")
	}
	return appErrors.Internal(err, message)
}

// nameSlug derives a slug and rejects names that produce an empty one.
func nameSlug(name string) (string, error) {
	s := slug.Make(name)
	if s == "" {
		return "", appErrors.Validation("invalid name", map[string]string{"name": "name must contain at least one letter or digit"})
	}
	return s, nil
}
