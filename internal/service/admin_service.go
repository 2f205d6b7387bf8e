package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/internal/models"
	"github.com/noah-isme/coursehub-api/internal/repository"
	"github.com/noah-isme/coursehub-api/pkg/database"
	appErrors "github.com/noah-isme/coursehub-api/pkg/errors"
)

type adminStore interface {
	CreateWithPrincipal(ctx context.Context, admin *models.Admin, provision repository.ProvisionFunc) error
}

// AdminService bootstraps administrator accounts out of band.
type AdminService struct {
	repo        adminStore
	provider    IdentityProvider
	compensator principalCompensator
	logger      *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(repo adminStore, provider IdentityProvider, compensator principalCompensator, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{repo: repo, provider: provider, compensator: compensator, logger: logger}
}

// Create provisions an admin principal and its local record.
func (s *AdminService) Create(ctx context.Context, name, email, password string) (*models.Admin, error) {
	admin := &models.Admin{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	err := s.repo.CreateWithPrincipal(ctx, admin, func(ctx context.Context) (string, error) {
		return s.provider.CreatePrincipal(ctx, admin.Email, password, map[string]string{"name": admin.Name, "kind": string(models.RoleAdmin)})
	})
	if err == nil {
		s.logger.Info("admin created", zap.String("admin_id", admin.ID), zap.String("principal_id", admin.PrincipalID))
		return admin, nil
	}

	if admin.PrincipalID == "" {
		return nil, appErrors.FromError(err)
	}
	if !s.compensator.Compensate(ctx, admin.PrincipalID) {
		return nil, appErrors.Wrap(err, appErrors.ErrPartialFailure.Code, appErrors.ErrPartialFailure.Status, "the admin could not be saved and its login must be removed manually")
	}
	if database.IsUniqueViolation(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "an admin with this email already exists")
	}
	return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to create admin")
}
