package dto

import (
	"sort"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

// Intent discriminates the form-encoded mutation requests.
type Intent string

const (
	IntentCreateCourse           Intent = "create-course"
	IntentEditCourse             Intent = "edit-course"
	IntentMakePublic             Intent = "make-public"
	IntentMakePrivate            Intent = "make-private"
	IntentDeleteCourse           Intent = "delete-course"
	IntentCreateSegment          Intent = "create-segment"
	IntentEditSegment            Intent = "edit-segment"
	IntentDeleteSegment          Intent = "delete-segment"
	IntentMakeSegmentPrivate     Intent = "make-segment-private"
	IntentMakeSegmentPublic      Intent = "make-segment-public"
	IntentCreateStudent          Intent = "create-student"
	IntentActivateStudent        Intent = "activate-student"
	IntentDeactivateStudent      Intent = "deactivate-student"
	IntentUpdateStudent          Intent = "update-student"
	IntentUpdateStudentPassword  Intent = "update-student-password"
	IntentSignInAdmin            Intent = "sign-in-admin"
	IntentSignInStudent          Intent = "sign-in-student"
	IntentSignOut                Intent = "sign-out"
	IntentUpdateCourseAssignment Intent = "update-course-assignment"
)

// Action is one typed mutation request. RequiredRole is RoleNone for intents
// open to any caller.
type Action interface {
	Intent() Intent
	RequiredRole() models.Role
}

type adminAction struct{}

func (adminAction) RequiredRole() models.Role { return models.RoleAdmin }

type openAction struct{}

func (openAction) RequiredRole() models.Role { return models.RoleNone }

// CreateCourseAction creates a private course.
type CreateCourseAction struct {
	adminAction
	Name        string `form:"name" validate:"required,notblank,max=200,slugged"`
	Description string `form:"description" validate:"max=5000"`
}

func (*CreateCourseAction) Intent() Intent { return IntentCreateCourse }

// EditCourseAction renames or re-describes a course.
type EditCourseAction struct {
	adminAction
	CourseID    string `form:"course_id" validate:"required,uuid"`
	Name        string `form:"name" validate:"required,notblank,max=200,slugged"`
	Description string `form:"description" validate:"max=5000"`
}

func (*EditCourseAction) Intent() Intent { return IntentEditCourse }

// MakePublicAction publishes a course.
type MakePublicAction struct {
	adminAction
	CourseID string `form:"course_id" validate:"required,uuid"`
}

func (*MakePublicAction) Intent() Intent { return IntentMakePublic }

// MakePrivateAction hides a course.
type MakePrivateAction struct {
	adminAction
	CourseID string `form:"course_id" validate:"required,uuid"`
}

func (*MakePrivateAction) Intent() Intent { return IntentMakePrivate }

// DeleteCourseAction removes a course with its segments and enrollments.
type DeleteCourseAction struct {
	adminAction
	CourseID string `form:"course_id" validate:"required,uuid"`
}

func (*DeleteCourseAction) Intent() Intent { return IntentDeleteCourse }

// CreateSegmentAction adds a segment under the course identified by slug.
type CreateSegmentAction struct {
	adminAction
	CourseSlug  string `form:"course_slug" validate:"required,notblank"`
	Name        string `form:"name" validate:"required,notblank,max=200,slugged"`
	Description string `form:"description" validate:"max=5000"`
	VideoURL    string `form:"video_url" validate:"required,url"`
}

func (*CreateSegmentAction) Intent() Intent { return IntentCreateSegment }

// EditSegmentAction updates a segment.
type EditSegmentAction struct {
	adminAction
	SegmentID   string `form:"segment_id" validate:"required,uuid"`
	Name        string `form:"name" validate:"required,notblank,max=200,slugged"`
	Description string `form:"description" validate:"max=5000"`
	VideoURL    string `form:"video_url" validate:"required,url"`
}

func (*EditSegmentAction) Intent() Intent { return IntentEditSegment }

// DeleteSegmentAction removes a segment.
type DeleteSegmentAction struct {
	adminAction
	SegmentID string `form:"segment_id" validate:"required,uuid"`
}

func (*DeleteSegmentAction) Intent() Intent { return IntentDeleteSegment }

// MakeSegmentPrivateAction hides a segment.
type MakeSegmentPrivateAction struct {
	adminAction
	SegmentID string `form:"segment_id" validate:"required,uuid"`
}

func (*MakeSegmentPrivateAction) Intent() Intent { return IntentMakeSegmentPrivate }

// MakeSegmentPublicAction publishes a segment.
type MakeSegmentPublicAction struct {
	adminAction
	SegmentID string `form:"segment_id" validate:"required,uuid"`
}

func (*MakeSegmentPublicAction) Intent() Intent { return IntentMakeSegmentPublic }

// CreateStudentAction registers an inactive student.
type CreateStudentAction struct {
	adminAction
	Name     string `form:"name" validate:"required,notblank,max=200"`
	Email    string `form:"email" validate:"required,email,max=320"`
	Phone    string `form:"phone" validate:"omitempty,max=32"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

func (*CreateStudentAction) Intent() Intent { return IntentCreateStudent }

// ActivateStudentAction enables a student.
type ActivateStudentAction struct {
	adminAction
	StudentID string `form:"student_id" validate:"required,uuid"`
}

func (*ActivateStudentAction) Intent() Intent { return IntentActivateStudent }

// DeactivateStudentAction disables a student and ends their sessions.
type DeactivateStudentAction struct {
	adminAction
	StudentID string `form:"student_id" validate:"required,uuid"`
}

func (*DeactivateStudentAction) Intent() Intent { return IntentDeactivateStudent }

// UpdateStudentAction edits a student profile.
type UpdateStudentAction struct {
	adminAction
	StudentID string `form:"student_id" validate:"required,uuid"`
	Name      string `form:"name" validate:"required,notblank,max=200"`
	Email     string `form:"email" validate:"required,email,max=320"`
	Phone     string `form:"phone" validate:"omitempty,max=32"`
}

func (*UpdateStudentAction) Intent() Intent { return IntentUpdateStudent }

// UpdateStudentPasswordAction replaces a student's password.
type UpdateStudentPasswordAction struct {
	adminAction
	StudentID       string `form:"student_id" validate:"required,uuid"`
	Password        string `form:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

func (*UpdateStudentPasswordAction) Intent() Intent { return IntentUpdateStudentPassword }

// SignInAdminAction opens an admin session.
type SignInAdminAction struct {
	openAction
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (*SignInAdminAction) Intent() Intent { return IntentSignInAdmin }

// SignInStudentAction opens a student session.
type SignInStudentAction struct {
	openAction
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (*SignInStudentAction) Intent() Intent { return IntentSignInStudent }

// SignOutAction ends the caller's session.
type SignOutAction struct {
	openAction
}

func (*SignOutAction) Intent() Intent { return IntentSignOut }

// UpdateCourseAssignmentAction assigns or unassigns a student.
type UpdateCourseAssignmentAction struct {
	adminAction
	StudentID string `form:"student_id" validate:"required,uuid"`
	CourseID  string `form:"course_id" validate:"required,uuid"`
	Assigned  *bool  `form:"assigned" validate:"required"`
}

func (*UpdateCourseAssignmentAction) Intent() Intent { return IntentUpdateCourseAssignment }

var registry = map[Intent]func() Action{
	IntentCreateCourse:           func() Action { return &CreateCourseAction{} },
	IntentEditCourse:             func() Action { return &EditCourseAction{} },
	IntentMakePublic:             func() Action { return &MakePublicAction{} },
	IntentMakePrivate:            func() Action { return &MakePrivateAction{} },
	IntentDeleteCourse:           func() Action { return &DeleteCourseAction{} },
	IntentCreateSegment:          func() Action { return &CreateSegmentAction{} },
	IntentEditSegment:            func() Action { return &EditSegmentAction{} },
	IntentDeleteSegment:          func() Action { return &DeleteSegmentAction{} },
	IntentMakeSegmentPrivate:     func() Action { return &MakeSegmentPrivateAction{} },
	IntentMakeSegmentPublic:      func() Action { return &MakeSegmentPublicAction{} },
	IntentCreateStudent:          func() Action { return &CreateStudentAction{} },
	IntentActivateStudent:        func() Action { return &ActivateStudentAction{} },
	IntentDeactivateStudent:      func() Action { return &DeactivateStudentAction{} },
	IntentUpdateStudent:          func() Action { return &UpdateStudentAction{} },
	IntentUpdateStudentPassword:  func() Action { return &UpdateStudentPasswordAction{} },
	IntentSignInAdmin:            func() Action { return &SignInAdminAction{} },
	IntentSignInStudent:          func() Action { return &SignInStudentAction{} },
	IntentSignOut:                func() Action { return &SignOutAction{} },
	IntentUpdateCourseAssignment: func() Action { return &UpdateCourseAssignmentAction{} },
}

// Intents lists every recognised intent in lexical order.
func Intents() []Intent {
	out := make([]Intent, 0, len(registry))
	for intent := range registry {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewAction returns an empty action for intent.
func NewAction(intent Intent) (Action, bool) {
	factory, ok := registry[intent]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// ParseAction builds the action named by intent and fills it with bind.
func ParseAction(intent string, bind func(interface{}) error) (Action, error) {
	if intent == "" {
		return nil, appErrors.Validation("missing intent", map[string]string{"intent": "intent is a required field"})
	}
	action, ok := NewAction(Intent(intent))
	if !ok {
		return nil, appErrors.Validation("unknown intent", map[string]string{"intent": "intent is not supported"})
	}
	if err := bind(action); err != nil {
		out := appErrors.Validation("malformed form payload", map[string]string{"form": "form fields could not be parsed"})
		out.Err = err
		return nil, out
	}
	return action, nil
}
