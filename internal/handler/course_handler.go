package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/export"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type courseReader interface {
	List(ctx context.Context) ([]models.Course, error)
	GetBySlug(ctx context.Context, courseSlug string) (*models.CourseDetail, error)
}

type segmentReader interface {
	ListByCourse(ctx context.Context, courseSlug string) ([]models.Segment, error)
}

type rosterReader interface {
	Roster(ctx context.Context, courseSlug string) (*models.Course, []models.RosterEntry, error)
	ExportRoster(ctx context.Context, courseSlug string, format export.Format) (*service.RosterExport, error)
}

// CourseHandler serves the admin view of courses, segments and rosters.
type CourseHandler struct {
	courses  courseReader
	segments segmentReader
	rosters  rosterReader
}

// NewCourseHandler constructs a CourseHandler.
func NewCourseHandler(courses courseReader, segments segmentReader, rosters rosterReader) *CourseHandler {
	return &CourseHandler{courses: courses, segments: segments, rosters: rosters}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.Course}
// @Failure 401 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get a course with all of its segments
// @Tags Courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope{data=models.CourseDetail}
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Segments godoc
// @Summary List the segments of a course
// @Tags Courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope{data=[]models.Segment}
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug}/segments [get]
func (h *CourseHandler) Segments(c *gin.Context) {
	segments, err := h.segments.ListByCourse(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, segments, nil)
}

// Roster godoc
// @Summary List students enrolled in a course
// @Description Shows every enrolled student regardless of course visibility.
// @Tags Courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug}/students [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	course, roster, err := h.rosters.Roster(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course": course, "students": roster}, nil)
}

// ExportRoster godoc
// @Summary Download a course roster
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Param slug path string true "Course slug"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{slug}/students/export [get]
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Validation("invalid export format", map[string]string{"format": "format must be csv or pdf"}))
		return
	}
	out, err := h.rosters.ExportRoster(c.Request.Context(), c.Param("slug"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Body)
}
