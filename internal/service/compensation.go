package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coursehub-api/pkg/jobs"
)

// JobTypeDeletePrincipal removes a principal left behind by a failed local insert.
const JobTypeDeletePrincipal = "delete_orphan_principal"

const compensationTimeout = 5 * time.Second

type principalDeleter interface {
	DeletePrincipal(ctx context.Context, principalID string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// PrincipalCompensator undoes the identity-provider half of a two-phase create.
// It tries the deletion inline and falls back to the job queue.
type PrincipalCompensator struct {
	provider principalDeleter
	queue    jobEnqueuer
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPrincipalCompensator constructs a PrincipalCompensator. Until SetQueue is
// called failed deletions are only logged.
func NewPrincipalCompensator(provider principalDeleter, metrics *MetricsService, logger *zap.Logger) *PrincipalCompensator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrincipalCompensator{provider: provider, metrics: metrics, logger: logger}
}

// SetQueue attaches the retry queue once it has been built around Handle.
func (c *PrincipalCompensator) SetQueue(queue jobEnqueuer) {
	c.queue = queue
}

// Compensate deletes principalID and reports whether it is gone. A false
// result means the principal still exists and a retry may have been scheduled.
func (c *PrincipalCompensator) Compensate(ctx context.Context, principalID string) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := c.provider.DeletePrincipal(ctx, principalID)
	c.metrics.RecordCompensation(err == nil)
	if err == nil {
		c.logger.Info("orphan principal removed", zap.String("principal_id", principalID))
		return true
	}
	c.logger.Warn("orphan principal removal failed", zap.String("principal_id", principalID), zap.Error(err))

	if c.queue == nil {
		return false
	}
	if qErr := c.queue.Enqueue(jobs.Job{Type: JobTypeDeletePrincipal, Payload: principalID}); qErr != nil {
		c.logger.Error("failed to schedule orphan principal removal", zap.String("principal_id", principalID), zap.Error(qErr))
	}
	return false
}

// Handle is the job handler that retries orphan principal removal.
func (c *PrincipalCompensator) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeDeletePrincipal {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	principalID, ok := job.Payload.(string)
	if !ok || principalID == "" {
		return fmt.Errorf("job %s: invalid principal payload", job.ID)
	}
	return c.provider.DeletePrincipal(ctx, principalID)
}

// GiveUp logs principals that could not be removed, either after all retries
// or because the process shut down first.
func (c *PrincipalCompensator) GiveUp(job jobs.Job, err error) {
	msg := "orphan principal requires manual cleanup"
	if errors.Is(err, jobs.ErrStopped) {
		msg = "orphan principal cleanup interrupted by shutdown, manual cleanup required"
	}
	c.logger.Error(msg,
		zap.Any("principal_id", job.Payload),
		zap.Int("attempts", job.Attempt),
		zap.Error(err),
	)
}
