package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/response"
)

type studentReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
}

type assignmentReader interface {
	ListCourseIDsForStudent(ctx context.Context, studentID string) ([]string, error)
}

// StudentHandler serves the admin view of students.
type StudentHandler struct {
	students    studentReader
	assignments assignmentReader
}

// NewStudentHandler constructs a StudentHandler.
func NewStudentHandler(students studentReader, assignments assignmentReader) *StudentHandler {
	return &StudentHandler{students: students, assignments: assignments}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Name or email contains"
// @Param activated query bool false "Filter by activation"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope{data=[]models.Student}
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	fields := map[string]string{}
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Activated: queryBool(c, "activated", fields),
		Pagination: models.Pagination{
			Page:     queryInt(c, "page", fields),
			PageSize: queryInt(c, "page_size", fields),
		},
	}
	if len(fields) > 0 {
		response.Error(c, appErrors.Validation("invalid query parameters", fields))
		return
	}

	students, page, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, page)
}

// Get godoc
// @Summary Get a student and the ids of assigned courses
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
		return
	}
	ctx := c.Request.Context()
	student, err := h.students.Get(ctx, id.String())
	if err != nil {
		response.Error(c, err)
		return
	}
	courseIDs, err := h.assignments.ListCourseIDsForStudent(ctx, student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": student, "course_ids": courseIDs}, nil)
}
