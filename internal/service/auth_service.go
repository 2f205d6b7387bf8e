package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

// AuthService signs admins and students in and out through the identity provider.
type AuthService struct {
	provider IdentityProvider
	admins   adminLookup
	students studentLookup
	logger   *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(provider IdentityProvider, admins adminLookup, students studentLookup, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{provider: provider, admins: admins, students: students, logger: logger}
}

// SignInAdmin opens a session for a principal that owns an admin record. A
// principal without one gets the same error as a wrong password.
func (s *AuthService) SignInAdmin(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if _, err := s.admins.FindByPrincipalID(ctx, session.PrincipalID); err != nil {
		s.discard(ctx, session)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to load admin")
	}
	return session, nil
}

// SignInStudent opens a session for an activated student. The session of an
// inactive student is revoked before it is ever returned.
func (s *AuthService) SignInStudent(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByPrincipalID(ctx, session.PrincipalID)
	if err != nil {
		s.discard(ctx, session)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if !student.IsActivated {
		s.discard(ctx, session)
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "your account has not been activated yet")
	}
	return session, nil
}

// SignOut ends the session behind token.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		return appErrors.Internal(err, "failed to sign out")
	}
	return nil
}

func (s *AuthService) discard(ctx context.Context, session *models.Session) {
	if err := s.provider.SignOut(ctx, session.Token); err != nil {
		s.logger.Warn("failed to discard session", zap.String("principal_id", session.PrincipalID), zap.Error(err))
	}
}
