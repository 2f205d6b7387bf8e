package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
	"github.com/noah-isme/coursehub-api/pkg/jobs"
)

// memDB is an in-memory stand-in for the relational store shared by the repo fakes.
type memDB struct {
	mu          sync.Mutex
	seq         int
	courses     map[string]models.Course
	segments    map[string]models.Segment
	students    map[string]models.Student
	admins      map[string]models.Admin
	enrollments map[[2]string]time.Time

	cascadeErr       error
	studentInsertErr error
}

func newMemDB() *memDB {
	return &memDB{
		courses:     map[string]models.Course{},
		segments:    map[string]models.Segment{},
		students:    map[string]models.Student{},
		admins:      map[string]models.Admin{},
		enrollments: map[[2]string]time.Time{},
	}
}

func (db *memDB) tick() time.Time {
	db.seq++
	return time.Date(2024, 1, 1, 0, 0, db.seq, 0, time.UTC)
}

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint}
}

type memCourses struct{ db *memDB }

func (r memCourses) FindByID(_ context.Context, id string) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r memCourses) FindBySlug(_ context.Context, slug string) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.courses {
		if c.Slug == slug {
			c := c
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memCourses) ExistsBySlug(_ context.Context, slug, excludeID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.courses {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memCourses) List(_ context.Context) ([]models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Course, 0, len(r.db.courses))
	for _, c := range r.db.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memCourses) Create(_ context.Context, course *models.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.courses {
		if c.Slug == course.Slug {
			return uniqueViolation("courses_slug_key")
		}
	}
	course.ID = uuid.NewString()
	course.CreatedAt = r.db.tick()
	course.UpdatedAt = course.CreatedAt
	r.db.courses[course.ID] = *course
	return nil
}

func (r memCourses) Update(_ context.Context, course *models.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.courses[course.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.courses[course.ID] = *course
	return nil
}

func (r memCourses) SetVisibility(_ context.Context, id string, public bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.courses[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsPublic = public
	r.db.courses[id] = c
	return nil
}

func (r memCourses) DeleteCascade(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.cascadeErr != nil {
		return r.db.cascadeErr
	}
	if _, ok := r.db.courses[id]; !ok {
		return sql.ErrNoRows
	}
	for key := range r.db.enrollments {
		if key[1] == id {
			delete(r.db.enrollments, key)
		}
	}
	for sid, s := range r.db.segments {
		if s.CourseID == id {
			delete(r.db.segments, sid)
		}
	}
	delete(r.db.courses, id)
	return nil
}

type memSegments struct{ db *memDB }

func (r memSegments) FindByID(_ context.Context, id string) (*models.Segment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.segments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r memSegments) FindBySlug(_ context.Context, courseID, slug string) (*models.Segment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.segments {
		if s.CourseID == courseID && s.Slug == slug {
			s := s
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memSegments) ExistsBySlug(_ context.Context, courseID, slug, excludeID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.segments {
		if s.CourseID == courseID && s.Slug == slug && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memSegments) ListByCourse(_ context.Context, courseID string, publicOnly bool) ([]models.Segment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Segment, 0)
	for _, s := range r.db.segments {
		if s.CourseID != courseID || (publicOnly && !s.IsPublic) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memSegments) Create(_ context.Context, segment *models.Segment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.segments {
		if s.CourseID == segment.CourseID && s.Slug == segment.Slug {
			return uniqueViolation("segments_course_id_slug_key")
		}
	}
	segment.ID = uuid.NewString()
	segment.CreatedAt = r.db.tick()
	segment.UpdatedAt = segment.CreatedAt
	r.db.segments[segment.ID] = *segment
	return nil
}

func (r memSegments) Update(_ context.Context, segment *models.Segment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.segments[segment.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.segments[segment.ID] = *segment
	return nil
}

func (r memSegments) SetVisibility(_ context.Context, id string, public bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.segments[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.IsPublic = public
	r.db.segments[id] = s
	return nil
}

func (r memSegments) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.segments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.segments, id)
	return nil
}

type memStudents struct{ db *memDB }

func (r memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r memStudents) FindByPrincipalID(_ context.Context, principalID string) (*models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.students {
		if s.PrincipalID == principalID {
			s := s
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memStudents) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.students {
		if strings.EqualFold(s.Email, email) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r memStudents) List(_ context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Student, 0)
	for _, s := range r.db.students {
		if filter.Activated != nil && s.IsActivated != *filter.Activated {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (r memStudents) CreateWithPrincipal(ctx context.Context, student *models.Student, provision repository.ProvisionFunc) error {
	principalID, err := provision(ctx)
	if err != nil {
		return fmt.Errorf("provision student principal: %w", err)
	}
	student.PrincipalID = principalID

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.studentInsertErr != nil {
		return fmt.Errorf("create student: %w", r.db.studentInsertErr)
	}
	student.ID = uuid.NewString()
	student.CreatedAt = r.db.tick()
	r.db.students[student.ID] = *student
	return nil
}

func (r memStudents) Update(_ context.Context, student *models.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.students[student.ID] = *student
	return nil
}

func (r memStudents) SetActivation(_ context.Context, id string, activated bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.IsActivated = activated
	r.db.students[id] = s
	return nil
}

func (r memStudents) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.PasswordHash = passwordHash
	r.db.students[id] = s
	return nil
}

type memAdmins struct{ db *memDB }

func (r memAdmins) FindByPrincipalID(_ context.Context, principalID string) (*models.Admin, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.admins[principalID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (r memAdmins) CreateWithPrincipal(ctx context.Context, admin *models.Admin, provision repository.ProvisionFunc) error {
	principalID, err := provision(ctx)
	if err != nil {
		return err
	}
	admin.PrincipalID = principalID
	admin.ID = uuid.NewString()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.admins[principalID] = *admin
	return nil
}

type memEnrollments struct{ db *memDB }

func (r memEnrollments) Assign(_ context.Context, studentID, courseID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]string{studentID, courseID}
	if _, ok := r.db.enrollments[key]; ok {
		return false, nil
	}
	r.db.enrollments[key] = r.db.tick()
	return true, nil
}

func (r memEnrollments) Unassign(_ context.Context, studentID, courseID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]string{studentID, courseID}
	if _, ok := r.db.enrollments[key]; !ok {
		return false, nil
	}
	delete(r.db.enrollments, key)
	return true, nil
}

func (r memEnrollments) ListCoursesForStudent(_ context.Context, studentID string) ([]models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Course, 0)
	for key := range r.db.enrollments {
		if key[0] != studentID {
			continue
		}
		if c, ok := r.db.courses[key[1]]; ok && c.IsPublic {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memEnrollments) FindCourseForStudent(_ context.Context, studentID, slug string) (*models.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for key := range r.db.enrollments {
		if key[0] != studentID {
			continue
		}
		if c, ok := r.db.courses[key[1]]; ok && c.IsPublic && c.Slug == slug {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memEnrollments) ListStudentsForCourse(_ context.Context, courseID string) ([]models.RosterEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.RosterEntry, 0)
	for key, at := range r.db.enrollments {
		if key[1] != courseID {
			continue
		}
		s := r.db.students[key[0]]
		out = append(out, models.RosterEntry{StudentID: s.ID, Name: s.Name, Email: s.Email, IsActivated: s.IsActivated, EnrolledAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memEnrollments) ListCourseIDsForStudent(_ context.Context, studentID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]string, 0)
	for key := range r.db.enrollments {
		if key[0] == studentID {
			out = append(out, key[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (db *memDB) enrollmentCount(courseID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for key := range db.enrollments {
		if key[1] == courseID {
			n++
		}
	}
	return n
}

func (db *memDB) segmentCount(courseID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, s := range db.segments {
		if s.CourseID == courseID {
			n++
		}
	}
	return n
}

// fakeProvider is an in-memory IdentityProvider.
type fakeProvider struct {
	mu         sync.Mutex
	seq        int
	principals map[string]fakePrincipal
	sessions   map[string]string

	createErr        error
	deleteErr        error
	signOuts         []string
	principalSignOut []string
	deleted          []string
}

type fakePrincipal struct {
	email    string
	password string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{principals: map[string]fakePrincipal{}, sessions: map[string]string{}}
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, pr := range p.principals {
		if strings.EqualFold(pr.email, email) && pr.password == password {
			p.seq++
			token := fmt.Sprintf("tok-%d", p.seq)
			p.sessions[token] = id
			return &models.Session{ID: token, PrincipalID: id, Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
}

func (p *fakeProvider) SignOut(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, token)
	p.signOuts = append(p.signOuts, token)
	return nil
}

func (p *fakeProvider) SignOutPrincipal(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for token, id := range p.sessions {
		if id == principalID {
			delete(p.sessions, token)
		}
	}
	p.principalSignOut = append(p.principalSignOut, principalID)
	return nil
}

func (p *fakeProvider) Verify(_ context.Context, token string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.sessions[token]
	if !ok {
		return "", ErrInvalidSession
	}
	return id, nil
}

func (p *fakeProvider) CreatePrincipal(_ context.Context, email, password string, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	for _, pr := range p.principals {
		if strings.EqualFold(pr.email, email) {
			return "", appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
		}
	}
	id := uuid.NewString()
	p.principals[id] = fakePrincipal{email: email, password: password}
	return id, nil
}

func (p *fakeProvider) DeletePrincipal(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	delete(p.principals, principalID)
	p.deleted = append(p.deleted, principalID)
	return nil
}

func (p *fakeProvider) UpdatePassword(_ context.Context, principalID, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.principals[principalID]
	if !ok {
		return errors.New("principal not found")
	}
	pr.password = password
	p.principals[principalID] = pr
	return nil
}

func (p *fakeProvider) UpdateEmail(_ context.Context, principalID, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.principals[principalID]
	if !ok {
		return errors.New("principal not found")
	}
	pr.email = email
	p.principals[principalID] = pr
	return nil
}

func (p *fakeProvider) liveSessions(principalID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, id := range p.sessions {
		if id == principalID {
			n++
		}
	}
	return n
}

func (p *fakeProvider) setDeleteErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteErr = err
}

func (p *fakeProvider) hasPrincipal(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.principals[id]
	return ok
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *fakeQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// fixture wires real services over the in-memory fakes.
type fixture struct {
	db          *memDB
	provider    *fakeProvider
	queue       *fakeQueue
	identity    *IdentityService
	auth        *AuthService
	courses     *CourseService
	segments    *SegmentService
	students    *StudentService
	admins      *AdminService
	enrollments *EnrollmentService
	actions     *ActionService
}

func newFixture() *fixture {
	db := newMemDB()
	provider := newFakeProvider()
	queue := &fakeQueue{}
	compensator := NewPrincipalCompensator(provider, nil, nil)
	compensator.SetQueue(queue)

	f := &fixture{db: db, provider: provider, queue: queue}
	f.identity = NewIdentityService(provider, memAdmins{db}, memStudents{db}, nil)
	f.auth = NewAuthService(provider, memAdmins{db}, memStudents{db}, nil)
	f.courses = NewCourseService(memCourses{db}, memSegments{db}, nil)
	f.segments = NewSegmentService(memCourses{db}, memSegments{db}, nil)
	f.students = NewStudentService(memStudents{db}, provider, compensator, nil)
	f.admins = NewAdminService(memAdmins{db}, provider, compensator, nil)
	f.enrollments = NewEnrollmentService(memEnrollments{db}, memStudents{db}, memCourses{db}, memSegments{db}, "", nil)
	f.actions = NewActionService(f.courses, f.segments, f.students, f.enrollments, f.auth, nil)
	return f
}
