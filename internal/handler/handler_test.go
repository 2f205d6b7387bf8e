package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/middleware"
	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/service"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/export"
)

var testCookie = middleware.SessionCookie{Name: "coursehub_session", TTL: time.Hour}

type dispatcherStub struct {
	got      dto.Action
	identity models.Identity
	result   models.ActionResult
}

func (d *dispatcherStub) Dispatch(_ context.Context, identity models.Identity, action dto.Action, _ service.ActionMeta) models.ActionResult {
	d.got = action
	d.identity = identity
	return d.result
}

type courseStub struct {
	courses []models.Course
}

func (s *courseStub) List(context.Context) ([]models.Course, error) { return s.courses, nil }

func (s *courseStub) GetBySlug(_ context.Context, courseSlug string) (*models.CourseDetail, error) {
	for _, c := range s.courses {
		if c.Slug == courseSlug {
			return &models.CourseDetail{Course: c, Segments: []models.Segment{}}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

func (s *courseStub) ListByCourse(context.Context, string) ([]models.Segment, error) {
	return []models.Segment{}, nil
}

func (s *courseStub) Roster(_ context.Context, courseSlug string) (*models.Course, []models.RosterEntry, error) {
	detail, err := s.GetBySlug(context.Background(), courseSlug)
	if err != nil {
		return nil, nil, err
	}
	return &detail.Course, []models.RosterEntry{{StudentID: "s1", Name: "Jane Doe"}}, nil
}

func (s *courseStub) ExportRoster(_ context.Context, courseSlug string, format export.Format) (*service.RosterExport, error) {
	return &service.RosterExport{
		Filename:    courseSlug + "-roster." + string(format),
		ContentType: export.For(format).ContentType(),
		Body:        []byte("Name,Email,Activated,Enrolled At\n"),
	}, nil
}

const janeID = "8d3c4a7e-2f4b-4b7e-9a51-3c0f6e2d9b10"

type studentStub struct {
	lastFilter models.StudentFilter
	gets       int
}

func (s *studentStub) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	s.lastFilter = filter
	page := filter.Pagination
	page.Normalize()
	return []models.Student{{ID: "s1", Name: "Jane Doe"}}, &page, nil
}

func (s *studentStub) Get(_ context.Context, id string) (*models.Student, error) {
	s.gets++
	if id != janeID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.Student{ID: janeID, Name: "Jane Doe"}, nil
}

func (s *studentStub) ListCourseIDsForStudent(context.Context, string) ([]string, error) {
	return []string{"c1"}, nil
}

type meStub struct {
	studentID string
}

func (s *meStub) ListCoursesForStudent(_ context.Context, studentID string) ([]models.Course, error) {
	s.studentID = studentID
	return []models.Course{{ID: "c1", Slug: "intro-to-biology", IsPublic: true}}, nil
}

func (s *meStub) CourseForStudent(context.Context, string, string) (*models.CourseDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

func (s *meStub) SegmentForStudent(context.Context, string, string, string) (*models.Segment, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "segment not found")
}

type tokenResolver map[string]models.Identity

func (r tokenResolver) Resolve(_ context.Context, token string) models.Identity {
	if id, ok := r[token]; ok {
		return id
	}
	return models.Anonymous()
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) models.ActionResult {
	t.Helper()
	var res models.ActionResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	return res
}

func postForm(h gin.HandlerFunc, values url.Values) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(values.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h(c)
	return w
}
