package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type studentCourseReader interface {
	ListCoursesForStudent(ctx context.Context, studentID string) ([]models.Course, error)
	CourseForStudent(ctx context.Context, studentID, courseSlug string) (*models.CourseDetail, error)
	SegmentForStudent(ctx context.Context, studentID, courseSlug, segmentSlug string) (*models.Segment, error)
}

// MeHandler serves the signed-in student's own view. Only public courses
// the student is enrolled in, and their public segments, are visible.
type MeHandler struct {
	courses studentCourseReader
}

// NewMeHandler constructs a MeHandler.
func NewMeHandler(courses studentCourseReader) *MeHandler {
	return &MeHandler{courses: courses}
}

// Profile godoc
// @Summary Current identity
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope{data=models.Identity}
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *MeHandler) Profile(c *gin.Context) {
	response.JSON(c, http.StatusOK, middleware.CurrentIdentity(c), nil)
}

// Courses godoc
// @Summary Courses visible to the student
// @Tags Me
// @Produce json
// @Success 200 {object} response.Envelope{data=[]models.Course}
// @Failure 401 {object} response.Envelope
// @Router /me/courses [get]
func (h *MeHandler) Courses(c *gin.Context) {
	courses, err := h.courses.ListCoursesForStudent(c.Request.Context(), middleware.CurrentIdentity(c).SubjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Course godoc
// @Summary A visible course with its public segments
// @Tags Me
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} response.Envelope{data=models.CourseDetail}
// @Failure 404 {object} response.Envelope
// @Router /me/courses/{slug} [get]
func (h *MeHandler) Course(c *gin.Context) {
	course, err := h.courses.CourseForStudent(c.Request.Context(), middleware.CurrentIdentity(c).SubjectID, c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Segment godoc
// @Summary A public segment of a visible course
// @Tags Me
// @Produce json
// @Param slug path string true "Course slug"
// @Param segmentSlug path string true "Segment slug"
// @Success 200 {object} response.Envelope{data=models.Segment}
// @Failure 404 {object} response.Envelope
// @Router /me/courses/{slug}/segments/{segmentSlug} [get]
func (h *MeHandler) Segment(c *gin.Context) {
	segment, err := h.courses.SegmentForStudent(c.Request.Context(), middleware.CurrentIdentity(c).SubjectID, c.Param("slug"), c.Param("segmentSlug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, segment, nil)
}
