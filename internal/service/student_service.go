package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/pkg/database"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	CreateWithPrincipal(ctx context.Context, student *models.Student, provision repository.ProvisionFunc) error
	Update(ctx context.Context, student *models.Student) error
	SetActivation(ctx context.Context, id string, activated bool) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

type principalCompensator interface {
	Compensate(ctx context.Context, principalID string) bool
}

// CreateStudentInput carries the fields of a new student account.
type CreateStudentInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// UpdateStudentInput carries editable profile fields.
type UpdateStudentInput struct {
	Name  string
	Email string
	Phone string
}

// StudentService manages student accounts across the local store and the identity provider.
type StudentService struct {
	repo        studentStore
	provider    IdentityProvider
	compensator principalCompensator
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, provider IdentityProvider, compensator principalCompensator, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, provider: provider, compensator: compensator, logger: logger}
}

// List returns students matching filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	page := filter.Pagination
	page.Normalize()
	page.TotalCount = total
	return students, &page, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

// Create provisions the principal, then inserts the inactive student in a
// short local transaction. When the insert fails after the principal exists the
// principal is removed; if that removal does not succeed inline the caller
// gets PartialFailure and the removal is retried in the background.
func (s *StudentService) Create(ctx context.Context, in CreateStudentInput) (*models.Student, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check student email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	student := &models.Student{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        optionalString(in.Phone),
		PasswordHash: string(hash),
	}
	err = s.repo.CreateWithPrincipal(ctx, student, func(ctx context.Context) (string, error) {
		return s.provider.CreatePrincipal(ctx, email, in.Password, map[string]string{"name": student.Name, "kind": string(models.RoleStudent)})
	})
	if err == nil {
		s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("principal_id", student.PrincipalID))
		return student, nil
	}

	if student.PrincipalID == "" {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to create student")
	}

	s.logger.Warn("student insert failed after principal creation", zap.String("principal_id", student.PrincipalID), zap.Error(err))
	if !s.compensator.Compensate(ctx, student.PrincipalID) {
		return nil, appErrors.Wrap(err, appErrors.ErrPartialFailure.Code, appErrors.ErrPartialFailure.Status,
			"the student account could not be saved and its login is being cleaned up")
	}
	if database.IsUniqueViolation(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a student with this email already exists")
	}
	return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to create student")
}

// Activate allows the student to sign in and be assigned to courses.
func (s *StudentService) Activate(ctx context.Context, id string) (*models.Student, error) {
	return s.setActivation(ctx, id, true)
}

// Deactivate blocks the student and revokes every open session.
func (s *StudentService) Deactivate(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.setActivation(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.provider.SignOutPrincipal(ctx, student.PrincipalID); err != nil {
		s.logger.Warn("failed to revoke sessions of deactivated student", zap.String("student_id", id), zap.Error(err))
	}
	return student, nil
}

// Update edits the profile. An email change is applied to the identity provider first.
func (s *StudentService) Update(ctx context.Context, id string, in UpdateStudentInput) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	previousEmail := student.Email
	emailChanged := !strings.EqualFold(email, previousEmail)
	if emailChanged {
		exists, err := s.repo.ExistsByEmail(ctx, email, student.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check student email")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a student with this email already exists")
		}
		if err := s.provider.UpdateEmail(ctx, student.PrincipalID, email); err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) {
				return nil, appErr
			}
			return nil, appErrors.Internal(err, "failed to update login email")
		}
	}

	student.Name = strings.TrimSpace(in.Name)
	student.Email = email
	student.Phone = optionalString(in.Phone)
	if err := s.repo.Update(ctx, student); err != nil {
		if emailChanged {
			if rbErr := s.provider.UpdateEmail(ctx, student.PrincipalID, previousEmail); rbErr != nil {
				s.logger.Error("failed to restore login email", zap.String("student_id", id), zap.Error(rbErr))
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "a student with this email already exists")
		}
		return nil, appErrors.Internal(err, "failed to update student")
	}
	return student, nil
}

// UpdatePassword sets a new password at the identity provider and mirrors its hash locally.
func (s *StudentService) UpdatePassword(ctx context.Context, id, password string) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.provider.UpdatePassword(ctx, student.PrincipalID, password); err != nil {
		return nil, appErrors.Internal(err, "failed to update password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, string(hash)); err != nil {
		s.logger.Warn("failed to mirror student password hash", zap.String("student_id", id), zap.Error(err))
	}
	return student, nil
}

func (s *StudentService) setActivation(ctx context.Context, id string, activated bool) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActivation(ctx, id, activated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to update student activation")
	}
	student.IsActivated = activated
	return student, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
