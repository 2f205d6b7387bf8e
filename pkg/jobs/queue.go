package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrStopped marks jobs abandoned because the queue shut down before they succeeded.
	ErrStopped = errors.New("queue stopped")
	// ErrFull is returned when the buffer has no room for another job.
	ErrFull = errors.New("queue full")
)

// Job is one unit of background work. Attempt counts finished handler runs.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. The context ends when the attempt times out or the
// queue is stopped hard.
type Handler func(context.Context, Job) error

// RetryPolicy bounds how often a failing job runs and how long it waits in between.
type RetryPolicy struct {
	// MaxAttempts includes the first run.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the wait before the run following attempt: BaseDelay doubled
// per finished attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if d >= p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = 60 * p.BaseDelay
	}
	return p
}

// QueueConfig configures a Queue.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Retry      RetryPolicy
	// AttemptTimeout bounds a single handler run. Zero means no per-run deadline.
	AttemptTimeout time.Duration
	Logger         *zap.Logger
	// OnGiveUp receives every job that will not run again: out of attempts,
	// out of buffer space, or abandoned by Stop (err wraps ErrStopped).
	OnGiveUp func(Job, error)
}

// Queue is an in-memory worker pool with delayed retries. Jobs never vanish
// silently: each one either succeeds or reaches OnGiveUp.
type Queue struct {
	name           string
	handler        Handler
	workerCount    int
	retry          RetryPolicy
	attemptTimeout time.Duration
	logger         *zap.Logger
	onGiveUp       func(Job, error)

	jobs    chan Job
	closing chan struct{}
	drain   chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc

	workers sync.WaitGroup
	retries sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopping bool
}

// NewQueue builds a queue around handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:           name,
		handler:        handler,
		workerCount:    cfg.Workers,
		retry:          cfg.Retry.withDefaults(),
		attemptTimeout: cfg.AttemptTimeout,
		logger:         cfg.Logger.With(zap.String("queue", name)),
		onGiveUp:       cfg.OnGiveUp,
		jobs:           make(chan Job, cfg.BufferSize),
		closing:        make(chan struct{}),
		drain:          make(chan struct{}),
	}
}

// Start launches the workers. ctx only scopes handler runs; shutting the queue
// down is Stop's job. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopping {
		return
	}
	q.runCtx, q.cancelRun = context.WithCancel(ctx)
	for i := 0; i < q.workerCount; i++ {
		q.workers.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workerCount), zap.Int("max_attempts", q.retry.MaxAttempts))
}

// Stop refuses new jobs, hands retries still waiting on their delay to
// OnGiveUp, and runs what is already buffered. When ctx ends first the running
// handlers are cancelled, the remaining jobs are given up and ctx.Err() is returned.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.stopping {
		q.stopping = true
		q.mu.Unlock()
		return nil
	}
	q.stopping = true
	close(q.closing)
	q.mu.Unlock()

	q.retries.Wait()
	close(q.drain)

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		q.cancelRun()
		<-done
	}
	q.cancelRun()
	q.logger.Info("queue stopped", zap.Bool("drained", err == nil))
	return err
}

// Enqueue adds a job without blocking. A missing ID is generated.
func (q *Queue) Enqueue(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case !q.started:
		return fmt.Errorf("queue %s not started", q.name)
	case q.stopping:
		return fmt.Errorf("queue %s: %w", q.name, ErrStopped)
	}
	if !q.push(job) {
		return fmt.Errorf("queue %s: %w", q.name, ErrFull)
	}
	return nil
}

func (q *Queue) push(job Job) bool {
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

func (q *Queue) worker() {
	defer q.workers.Done()
	for {
		select {
		case job := <-q.jobs:
			q.run(job)
		case <-q.drain:
			for {
				select {
				case job := <-q.jobs:
					q.run(job)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) run(job Job) {
	ctx := q.runCtx
	if q.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.attemptTimeout)
		defer cancel()
	}

	job.Attempt++
	err := q.handler(ctx, job)
	if err == nil {
		return
	}
	q.retryLater(job, err)
}

func (q *Queue) retryLater(job Job, err error) {
	q.mu.Lock()
	stopping := q.stopping
	if !stopping && job.Attempt < q.retry.MaxAttempts {
		q.retries.Add(1)
	}
	q.mu.Unlock()

	switch {
	case job.Attempt >= q.retry.MaxAttempts:
		q.giveUp(job, err)
		return
	case stopping:
		q.giveUp(job, fmt.Errorf("%w: %v", ErrStopped, err))
		return
	}

	delay := q.retry.Delay(job.Attempt)
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Duration("delay", delay),
		zap.Error(err),
	)

	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.closing:
			q.giveUp(job, fmt.Errorf("%w: %v", ErrStopped, err))
		case <-timer.C:
			if !q.push(job) {
				q.giveUp(job, fmt.Errorf("%w: %v", ErrFull, err))
			}
		}
	}()
}

func (q *Queue) giveUp(job Job, err error) {
	q.logger.Error("job given up",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempt),
		zap.Error(err),
	)
	if q.onGiveUp != nil {
		q.onGiveUp(job, err)
	}
}
