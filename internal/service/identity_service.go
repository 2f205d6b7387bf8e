package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
)

type adminLookup interface {
	FindByPrincipalID(ctx context.Context, principalID string) (*models.Admin, error)
}

type studentLookup interface {
	FindByPrincipalID(ctx context.Context, principalID string) (*models.Student, error)
}

// IdentityService resolves the caller behind a session token. Roles come from
// the admins and students tables on every call and are never cached.
type IdentityService struct {
	provider IdentityProvider
	admins   adminLookup
	students studentLookup
	logger   *zap.Logger
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(provider IdentityProvider, admins adminLookup, students studentLookup, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{provider: provider, admins: admins, students: students, logger: logger}
}

// Resolve returns the identity for token. Any failure yields an anonymous identity.
// A student deactivated after sign-in has the session terminated and is anonymous.
func (s *IdentityService) Resolve(ctx context.Context, token string) models.Identity {
	if token == "" {
		return models.Anonymous()
	}

	principalID, err := s.provider.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidSession) {
			s.logger.Warn("session verification failed", zap.Error(err))
		}
		return models.Anonymous()
	}

	admin, err := s.admins.FindByPrincipalID(ctx, principalID)
	switch {
	case err == nil:
		return models.Identity{
			Authenticated: true,
			PrincipalID:   principalID,
			Role:          models.RoleAdmin,
			SubjectID:     admin.ID,
			Name:          admin.Name,
			Email:         admin.Email,
			Token:         token,
		}
	case !errors.Is(err, sql.ErrNoRows):
		s.logger.Error("failed to resolve admin role", zap.String("principal_id", principalID), zap.Error(err))
		return models.Anonymous()
	}

	student, err := s.students.FindByPrincipalID(ctx, principalID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("failed to resolve student role", zap.String("principal_id", principalID), zap.Error(err))
			return models.Anonymous()
		}
		return models.Identity{Authenticated: true, PrincipalID: principalID, Role: models.RoleNone, Token: token}
	}

	if !student.IsActivated {
		if err := s.provider.SignOut(ctx, token); err != nil {
			s.logger.Warn("failed to terminate session of inactive student", zap.String("student_id", student.ID), zap.Error(err))
		}
		return models.Anonymous()
	}

	return models.Identity{
		Authenticated: true,
		PrincipalID:   principalID,
		Role:          models.RoleStudent,
		SubjectID:     student.ID,
		Name:          student.Name,
		Email:         student.Email,
		Token:         token,
	}
}
