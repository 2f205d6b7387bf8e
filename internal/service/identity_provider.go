package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/pkg/database"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

// ErrInvalidSession is returned by Verify for any token that does not map to a live session.
var ErrInvalidSession = errors.New("invalid session")

// IdentityProvider authenticates principals and manages their sessions.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	SignOutPrincipal(ctx context.Context, principalID string) error
	Verify(ctx context.Context, token string) (string, error)
	CreatePrincipal(ctx context.Context, email, password string, attributes map[string]string) (string, error)
	DeletePrincipal(ctx context.Context, principalID string) error
	UpdatePassword(ctx context.Context, principalID, password string) error
	UpdateEmail(ctx context.Context, principalID, email string) error
}

type principalStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Principal, error)
	Create(ctx context.Context, p *models.Principal) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
}

type sessionStore interface {
	Save(ctx context.Context, sessionID, principalID string, ttl time.Duration) error
	PrincipalFor(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID, principalID string) error
	DeleteAllForPrincipal(ctx context.Context, principalID string) error
}

// LocalIdentityConfig configures session tokens issued by LocalIdentityProvider.
type LocalIdentityConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// LocalIdentityProvider keeps principals in PostgreSQL and live sessions in Redis.
// Tokens are HS256 JWTs carrying the principal as subject and the session id.
type LocalIdentityProvider struct {
	principals principalStore
	sessions   sessionStore
	config     LocalIdentityConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewLocalIdentityProvider constructs the provider.
func NewLocalIdentityProvider(principals principalStore, sessions sessionStore, logger *zap.Logger, cfg LocalIdentityConfig) *LocalIdentityProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &LocalIdentityProvider{
		principals: principals,
		sessions:   sessions,
		config:     cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SignIn checks the password and opens a session.
func (p *LocalIdentityProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	principal, err := p.principals.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch principal")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	now := p.now()
	session := &models.Session{
		ID:          uuid.NewString(),
		PrincipalID: principal.ID,
		ExpiresAt:   now.Add(p.config.TTL),
	}
	claims := models.SessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			Issuer:    p.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			ID:        session.ID,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.config.Secret))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign session token")
	}
	if err := p.sessions.Save(ctx, session.ID, principal.ID, p.config.TTL); err != nil {
		return nil, appErrors.Internal(err, "failed to register session")
	}
	session.Token = token
	return session, nil
}

// SignOut ends the session behind token. Unknown or malformed tokens are ignored.
func (p *LocalIdentityProvider) SignOut(ctx context.Context, token string) error {
	claims, err := p.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	return p.sessions.Delete(ctx, claims.SessionID, claims.Subject)
}

// SignOutPrincipal revokes every session of a principal.
func (p *LocalIdentityProvider) SignOutPrincipal(ctx context.Context, principalID string) error {
	return p.sessions.DeleteAllForPrincipal(ctx, principalID)
}

// Verify returns the principal behind a live session token.
func (p *LocalIdentityProvider) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}
	claims, err := p.parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	principalID, err := p.sessions.PrincipalFor(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}
	if principalID != claims.Subject {
		return "", ErrInvalidSession
	}
	return principalID, nil
}

// CreatePrincipal registers a new principal and returns its id.
func (p *LocalIdentityProvider) CreatePrincipal(ctx context.Context, email, password string, attributes map[string]string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash password")
	}
	attrs, err := json.Marshal(attributes)
	if err != nil {
		return "", appErrors.Internal(err, "failed to encode principal attributes")
	}
	principal := &models.Principal{
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Attributes:   attrs,
	}
	if err := p.principals.Create(ctx, principal); err != nil {
		if database.IsUniqueViolation(err) {
			return "", appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "an account with this email already exists")
		}
		return "", appErrors.Internal(err, "failed to create principal")
	}
	return principal.ID, nil
}

// DeletePrincipal removes a principal and its sessions.
func (p *LocalIdentityProvider) DeletePrincipal(ctx context.Context, principalID string) error {
	if err := p.sessions.DeleteAllForPrincipal(ctx, principalID); err != nil {
		p.logger.Warn("failed to revoke sessions of deleted principal", zap.String("principal_id", principalID), zap.Error(err))
	}
	return p.principals.Delete(ctx, principalID)
}

// UpdatePassword replaces the password of a principal.
func (p *LocalIdentityProvider) UpdatePassword(ctx context.Context, principalID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	return p.principals.UpdatePassword(ctx, principalID, string(hash))
}

// UpdateEmail changes the login email of a principal.
func (p *LocalIdentityProvider) UpdateEmail(ctx context.Context, principalID, email string) error {
	if err := p.principals.UpdateEmail(ctx, principalID, strings.TrimSpace(email)); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "an account with this email already exists")
		}
		return err
	}
	return nil
}

func (p *LocalIdentityProvider) parse(token string, opts ...jwt.ParserOption) (*models.SessionClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if p.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.config.Issuer))
	}
	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(p.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
