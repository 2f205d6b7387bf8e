package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/validation"
)

type courseMutator interface {
	Create(ctx context.Context, name, description string) (*models.Course, error)
	Update(ctx context.Context, id, name, description string) (*models.Course, error)
	SetVisibility(ctx context.Context, id string, public bool) (*models.Course, error)
	Delete(ctx context.Context, id string) (*models.Course, error)
}

type segmentMutator interface {
	Create(ctx context.Context, courseSlug, name, description, videoURL string) (*models.Course, *models.Segment, error)
	Update(ctx context.Context, id, name, description, videoURL string) (*models.Course, *models.Segment, error)
	SetVisibility(ctx context.Context, id string, public bool) (*models.Course, *models.Segment, error)
	Delete(ctx context.Context, id string) (*models.Course, *models.Segment, error)
}

type studentMutator interface {
	Create(ctx context.Context, in CreateStudentInput) (*models.Student, error)
	Activate(ctx context.Context, id string) (*models.Student, error)
	Deactivate(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, id string, in UpdateStudentInput) (*models.Student, error)
	UpdatePassword(ctx context.Context, id, password string) (*models.Student, error)
}

type assignmentMutator interface {
	UpdateAssignment(ctx context.Context, studentID, courseID string, assigned bool) (*models.Course, error)
}

type sessionManager interface {
	SignInAdmin(ctx context.Context, email, password string) (*models.Session, error)
	SignInStudent(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type actionRecorder interface {
	RecordAction(intent, outcome string)
}

// ActionMeta describes the transport a request came through.
type ActionMeta struct {
	IP        string
	UserAgent string
}

// ActionServiceOption configures optional collaborators.
type ActionServiceOption func(*ActionService)

// WithAuditRecorder records successful mutations.
func WithAuditRecorder(audit auditRecorder) ActionServiceOption {
	return func(s *ActionService) { s.audit = audit }
}

// WithActionMetrics counts dispatched intents by outcome.
func WithActionMetrics(metrics actionRecorder) ActionServiceOption {
	return func(s *ActionService) { s.metrics = metrics }
}

// WithActionLogger overrides the logger.
func WithActionLogger(logger *zap.Logger) ActionServiceOption {
	return func(s *ActionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ActionService dispatches typed mutation intents. Each dispatch checks the
// role, validates the payload, then runs exactly one mutation and reports a
// uniform result. It never panics and never returns raw store errors.
type ActionService struct {
	courses     courseMutator
	segments    segmentMutator
	students    studentMutator
	enrollments assignmentMutator
	sessions    sessionManager
	validator   *validation.Validator
	audit       auditRecorder
	metrics     actionRecorder
	logger      *zap.Logger
}

// NewActionService constructs an ActionService.
func NewActionService(
	courses courseMutator,
	segments segmentMutator,
	students studentMutator,
	enrollments assignmentMutator,
	sessions sessionManager,
	validator *validation.Validator,
	opts ...ActionServiceOption,
) *ActionService {
	if validator == nil {
		validator = validation.New()
	}
	s := &ActionService{
		courses:     courses,
		segments:    segments,
		students:    students,
		enrollments: enrollments,
		sessions:    sessions,
		validator:   validator,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type auditEntry struct {
	resource   string
	resourceID string
	values     map[string]interface{}
}

// Dispatch runs action on behalf of identity.
func (s *ActionService) Dispatch(ctx context.Context, identity models.Identity, action dto.Action, meta ActionMeta) (result models.ActionResult) {
	intent := string(action.Intent())
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("action panicked", zap.String("intent", intent), zap.Any("panic", r), zap.Stack("stack"))
			result = s.failure(intent, appErrors.FromError(fmt.Errorf("panic: %v", r)))
		}
	}()

	if role := action.RequiredRole(); role != models.RoleNone && !identity.Is(role) {
		return s.failure(intent, appErrors.Clone(appErrors.ErrUnauthorized, "you are not allowed to perform this action"))
	}
	if err := s.validator.Struct(action, "invalid "+intent+" payload"); err != nil {
		return s.failure(intent, err)
	}

	res, entry, err := s.execute(ctx, identity, action)
	if err != nil {
		return s.failure(intent, err)
	}

	res.Success = true
	res.Status = http.StatusOK
	s.count(intent, "ok")
	if entry != nil {
		s.record(ctx, identity, res, intent, entry, meta)
	}
	return res
}

func (s *ActionService) execute(ctx context.Context, identity models.Identity, action dto.Action) (models.ActionResult, *auditEntry, error) {
	switch a := action.(type) {
	case *dto.CreateCourseAction:
		course, err := s.courses.Create(ctx, a.Name, a.Description)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return courseResult("Course created", course), courseAudit(course), nil

	case *dto.EditCourseAction:
		course, err := s.courses.Update(ctx, a.CourseID, a.Name, a.Description)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return courseResult("Course updated", course), courseAudit(course), nil

	case *dto.MakePublicAction:
		course, err := s.courses.SetVisibility(ctx, a.CourseID, true)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return courseResult("Course is now public", course), courseAudit(course), nil

	case *dto.MakePrivateAction:
		course, err := s.courses.SetVisibility(ctx, a.CourseID, false)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return courseResult("Course is now private", course), courseAudit(course), nil

	case *dto.DeleteCourseAction:
		course, err := s.courses.Delete(ctx, a.CourseID)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return models.ActionResult{Message: "Course deleted", Redirect: "/courses"}, courseAudit(course), nil

	case *dto.CreateSegmentAction:
		course, segment, err := s.segments.Create(ctx, a.CourseSlug, a.Name, a.Description, a.VideoURL)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return segmentResult("Segment created", course, segment), segmentAudit(segment), nil

	case *dto.EditSegmentAction:
		course, segment, err := s.segments.Update(ctx, a.SegmentID, a.Name, a.Description, a.VideoURL)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return segmentResult("Segment updated", course, segment), segmentAudit(segment), nil

	case *dto.DeleteSegmentAction:
		course, segment, err := s.segments.Delete(ctx, a.SegmentID)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return courseResult("Segment deleted", course), segmentAudit(segment), nil

	case *dto.MakeSegmentPrivateAction:
		course, segment, err := s.segments.SetVisibility(ctx, a.SegmentID, false)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return segmentResult("Segment is now private", course, segment), segmentAudit(segment), nil

	case *dto.MakeSegmentPublicAction:
		course, segment, err := s.segments.SetVisibility(ctx, a.SegmentID, true)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return segmentResult("Segment is now public", course, segment), segmentAudit(segment), nil

	case *dto.CreateStudentAction:
		student, err := s.students.Create(ctx, CreateStudentInput{Name: a.Name, Email: a.Email, Phone: a.Phone, Password: a.Password})
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return studentResult("Student created", student), studentAudit(student), nil

	case *dto.ActivateStudentAction:
		student, err := s.students.Activate(ctx, a.StudentID)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return studentResult("Student activated", student), studentAudit(student), nil

	case *dto.DeactivateStudentAction:
		student, err := s.students.Deactivate(ctx, a.StudentID)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return studentResult("Student deactivated", student), studentAudit(student), nil

	case *dto.UpdateStudentAction:
		student, err := s.students.Update(ctx, a.StudentID, UpdateStudentInput{Name: a.Name, Email: a.Email, Phone: a.Phone})
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return studentResult("Student updated", student), studentAudit(student), nil

	case *dto.UpdateStudentPasswordAction:
		student, err := s.students.UpdatePassword(ctx, a.StudentID, a.Password)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return studentResult("Password updated", student), &auditEntry{resource: "student_password", resourceID: student.ID}, nil

	case *dto.UpdateCourseAssignmentAction:
		course, err := s.enrollments.UpdateAssignment(ctx, a.StudentID, a.CourseID, *a.Assigned)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		message := "Course unassigned"
		if *a.Assigned {
			message = "Course assigned"
		}
		res := models.ActionResult{
			Message:    message,
			CourseSlug: course.Slug,
			StudentID:  a.StudentID,
			Redirect:   "/students/" + a.StudentID,
		}
		entry := &auditEntry{
			resource:   "enrollment",
			resourceID: a.StudentID,
			values:     map[string]interface{}{"course_id": course.ID, "assigned": *a.Assigned},
		}
		return res, entry, nil

	case *dto.SignInAdminAction:
		session, err := s.sessions.SignInAdmin(ctx, a.Email, a.Password)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return sessionResult("Signed in", "/courses", session), sessionAudit(session), nil

	case *dto.SignInStudentAction:
		session, err := s.sessions.SignInStudent(ctx, a.Email, a.Password)
		if err != nil {
			return models.ActionResult{}, nil, err
		}
		return sessionResult("Signed in", "/me/courses", session), sessionAudit(session), nil

	case *dto.SignOutAction:
		if err := s.sessions.SignOut(ctx, identity.Token); err != nil {
			return models.ActionResult{}, nil, err
		}
		return models.ActionResult{Message: "Signed out", Redirect: "/", ClearSession: true}, nil, nil

	default:
		return models.ActionResult{}, nil, appErrors.Validation("unknown intent", map[string]string{"intent": "intent is not supported"})
	}
}

func (s *ActionService) failure(intent string, err error) models.ActionResult {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		s.logger.Error("action failed", zap.String("intent", intent), zap.String("code", appErr.Code), zap.Error(err))
	}
	s.count(intent, appErr.Code)
	return models.ActionResult{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
		Fields:  appErr.Fields,
		Status:  appErr.Status,
	}
}

func (s *ActionService) count(intent, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAction(intent, outcome)
	}
}

func (s *ActionService) record(ctx context.Context, identity models.Identity, res models.ActionResult, intent string, entry *auditEntry, meta ActionMeta) {
	if s.audit == nil {
		return
	}
	principalID := identity.PrincipalID
	if res.Session != nil {
		principalID = res.Session.PrincipalID
	}
	log := &models.AuditLog{
		Action:    intent,
		Resource:  entry.resource,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if principalID != "" {
		log.PrincipalID = &principalID
	}
	if entry.resourceID != "" {
		id := entry.resourceID
		log.ResourceID = &id
	}
	if entry.values != nil {
		if raw, err := json.Marshal(entry.values); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("intent", intent), zap.Error(err))
	}
}

func courseResult(message string, course *models.Course) models.ActionResult {
	return models.ActionResult{Message: message, CourseSlug: course.Slug, Redirect: "/courses/" + course.Slug}
}

func segmentResult(message string, course *models.Course, segment *models.Segment) models.ActionResult {
	return models.ActionResult{
		Message:     message,
		CourseSlug:  course.Slug,
		SegmentSlug: segment.Slug,
		Redirect:    "/courses/" + course.Slug + "/segments/" + segment.Slug,
	}
}

func studentResult(message string, student *models.Student) models.ActionResult {
	return models.ActionResult{Message: message, StudentID: student.ID, Redirect: "/students/" + student.ID}
}

func sessionResult(message, redirect string, session *models.Session) models.ActionResult {
	return models.ActionResult{Message: message, Redirect: redirect, Token: session.Token, Session: session}
}

func courseAudit(course *models.Course) *auditEntry {
	return &auditEntry{
		resource:   "course",
		resourceID: course.ID,
		values:     map[string]interface{}{"name": course.Name, "slug": course.Slug, "is_public": course.IsPublic},
	}
}

func segmentAudit(segment *models.Segment) *auditEntry {
	return &auditEntry{
		resource:   "segment",
		resourceID: segment.ID,
		values:     map[string]interface{}{"course_id": segment.CourseID, "name": segment.Name, "slug": segment.Slug, "is_public": segment.IsPublic},
	}
}

func studentAudit(student *models.Student) *auditEntry {
	return &auditEntry{
		resource:   "student",
		resourceID: student.ID,
		values:     map[string]interface{}{"name": student.Name, "email": student.Email, "is_activated": student.IsActivated},
	}
}

func sessionAudit(session *models.Session) *auditEntry {
	return &auditEntry{resource: "auth", resourceID: session.PrincipalID, values: map[string]interface{}{"status": "success"}}
}
