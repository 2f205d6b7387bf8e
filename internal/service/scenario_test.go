package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/dto"
	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

// Walks a course from creation to a student seeing it, through the dispatcher.
func TestCourseLifecycleThroughDispatcher(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	dispatch := func(caller models.Identity, action dto.Action) models.ActionResult {
		t.Helper()
		return f.actions.Dispatch(ctx, caller, action, ActionMeta{})
	}

	res := dispatch(adminIdentity, &dto.CreateCourseAction{Name: "Intro to Biology"})
	require.True(t, res.Success)
	require.Equal(t, "intro-to-biology", res.CourseSlug)

	res = dispatch(adminIdentity, &dto.CreateSegmentAction{CourseSlug: "intro-to-biology", Name: "Cell Structure!", VideoURL: "https://videos.example.com/cells.mp4"})
	require.True(t, res.Success)
	require.Equal(t, "cell-structure", res.SegmentSlug)

	course, err := f.courses.GetBySlug(ctx, "intro-to-biology")
	require.NoError(t, err)
	require.Len(t, course.Segments, 1)
	segmentID := course.Segments[0].ID

	require.True(t, dispatch(adminIdentity, &dto.MakePublicAction{CourseID: course.ID}).Success)

	res = dispatch(adminIdentity, &dto.CreateStudentAction{Name: "Jane Doe", Email: "jane@example.com", Password: "correct-horse"})
	require.True(t, res.Success)
	studentID := res.StudentID

	res = dispatch(models.Anonymous(), &dto.SignInStudentAction{Email: "jane@example.com", Password: "correct-horse"})
	assert.False(t, res.Success)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, res.Code)
	assert.Empty(t, res.Token)

	res = dispatch(adminIdentity, &dto.UpdateCourseAssignmentAction{StudentID: studentID, CourseID: course.ID, Assigned: boolPtr(true)})
	assert.False(t, res.Success)
	assert.Equal(t, appErrors.ErrStudentInactive.Code, res.Code)

	require.True(t, dispatch(adminIdentity, &dto.ActivateStudentAction{StudentID: studentID}).Success)
	require.True(t, dispatch(adminIdentity, &dto.UpdateCourseAssignmentAction{StudentID: studentID, CourseID: course.ID, Assigned: boolPtr(true)}).Success)

	res = dispatch(models.Anonymous(), &dto.SignInStudentAction{Email: "jane@example.com", Password: "correct-horse"})
	require.True(t, res.Success)
	jane := f.identity.Resolve(ctx, res.Token)
	require.True(t, jane.Is(models.RoleStudent))

	courses, err := f.enrollments.ListCoursesForStudent(ctx, jane.SubjectID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Intro to Biology", courses[0].Name)

	detail, err := f.enrollments.CourseForStudent(ctx, jane.SubjectID, "intro-to-biology")
	require.NoError(t, err)
	assert.Empty(t, detail.Segments)

	require.True(t, dispatch(adminIdentity, &dto.MakeSegmentPublicAction{SegmentID: segmentID}).Success)
	detail, err = f.enrollments.CourseForStudent(ctx, jane.SubjectID, "intro-to-biology")
	require.NoError(t, err)
	require.Len(t, detail.Segments, 1)
	assert.Equal(t, "Cell Structure!", detail.Segments[0].Name)

	require.True(t, dispatch(adminIdentity, &dto.MakePrivateAction{CourseID: course.ID}).Success)
	courses, err = f.enrollments.ListCoursesForStudent(ctx, jane.SubjectID)
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Equal(t, 1, f.db.enrollmentCount(course.ID))

	require.True(t, dispatch(adminIdentity, &dto.MakePublicAction{CourseID: course.ID}).Success)
	courses, err = f.enrollments.ListCoursesForStudent(ctx, jane.SubjectID)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}
