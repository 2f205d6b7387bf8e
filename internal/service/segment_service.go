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
)

type courseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindBySlug(ctx context.Context, slug string) (*models.Course, error)
}

type segmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Segment, error)
	ExistsBySlug(ctx context.Context, courseID, slug, excludeID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string, publicOnly bool) ([]models.Segment, error)
	Create(ctx context.Context, segment *models.Segment) error
	Update(ctx context.Context, segment *models.Segment) error
	SetVisibility(ctx context.Context, id string, public bool) error
	Delete(ctx context.Context, id string) error
}

// SegmentService manages video segments within a course. Every operation
// returns the owning course alongside the segment.
type SegmentService struct {
	courses courseFinder
	repo    segmentStore
	logger  *zap.Logger
}

// NewSegmentService constructs a SegmentService.
func NewSegmentService(courses courseFinder, repo segmentStore, logger *zap.Logger) *SegmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SegmentService{courses: courses, repo: repo, logger: logger}
}

// ListByCourse returns every segment of the course, public or not.
func (s *SegmentService) ListByCourse(ctx context.Context, courseSlug string) ([]models.Segment, error) {
	course, err := s.courseBySlug(ctx, courseSlug)
	if err != nil {
		return nil, err
	}
	segments, err := s.repo.ListByCourse(ctx, course.ID, false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list segments")
	}
	return segments, nil
}

// Create adds a private segment under the course identified by courseSlug.
func (s *SegmentService) Create(ctx context.Context, courseSlug, name, description, videoURL string) (*models.Course, *models.Segment, error) {
	course, err := s.courseBySlug(ctx, courseSlug)
	if err != nil {
		return nil, nil, err
	}

	name = strings.TrimSpace(name)
	segmentSlug, err := nameSlug(name)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ensureSlugFree(ctx, course.ID, segmentSlug, ""); err != nil {
		return nil, nil, err
	}

	segment := &models.Segment{
		CourseID:    course.ID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoURL:    strings.TrimSpace(videoURL),
		Slug:        segmentSlug,
	}
	if err := s.repo.Create(ctx, segment); err != nil {
		return nil, nil, s.writeError(err, "failed to create segment")
	}
	return course, segment, nil
}

// Update changes the segment fields, moving the slug only when the name changes.
func (s *SegmentService) Update(ctx context.Context, id, name, description, videoURL string) (*models.Course, *models.Segment, error) {
	course, segment, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	name = strings.TrimSpace(name)
	if name != segment.Name {
		newSlug, err := nameSlug(name)
		if err != nil {
			return nil, nil, err
		}
		if newSlug != segment.Slug {
			if err := s.ensureSlugFree(ctx, course.ID, newSlug, segment.ID); err != nil {
				return nil, nil, err
			}
			segment.Slug = newSlug
		}
		segment.Name = name
	}
	segment.Description = strings.TrimSpace(description)
	segment.VideoURL = strings.TrimSpace(videoURL)

	if err := s.repo.Update(ctx, segment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
		}
		return nil, nil, s.writeError(err, "failed to update segment")
	}
	return course, segment, nil
}

// SetVisibility publishes or hides a segment. Repeating the current value succeeds.
func (s *SegmentService) SetVisibility(ctx context.Context, id string, public bool) (*models.Course, *models.Segment, error) {
	course, segment, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SetVisibility(ctx, id, public); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to update segment visibility")
	}
	segment.IsPublic = public
	return course, segment, nil
}

// Delete removes a segment.
func (s *SegmentService) Delete(ctx context.Context, id string) (*models.Course, *models.Segment, error) {
	course, segment, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to delete segment")
	}
	return course, segment, nil
}

func (s *SegmentService) load(ctx context.Context, id string) (*models.Course, *models.Segment, error) {
	segment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load segment")
	}
	course, err := s.courses.FindByID(ctx, segment.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load course")
	}
	return course, segment, nil
}

func (s *SegmentService) courseBySlug(ctx context.Context, courseSlug string) (*models.Course, error) {
	course, err := s.courses.FindBySlug(ctx, courseSlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *SegmentService) ensureSlugFree(ctx context.Context, courseID, segmentSlug, excludeID string) error {
	exists, err := s.repo.ExistsBySlug(ctx, courseID, segmentSlug, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check segment slug")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a segment with this name already exists in this course")
	}
	return nil
}

func (s *SegmentService) writeError(err error, message string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a segment with this name already exists in this course")
	}
	return appErrors.Internal(err, message)
}
