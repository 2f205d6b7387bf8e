package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "noop"}))
}

func TestQueueProcessesJob(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, j Job) error {
		done <- j
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer stopQueue(t, q)

	require.NoError(t, q.Enqueue(Job{Type: "noop", Payload: "x"}))

	select {
	case j := <-done:
		assert.NotEmpty(t, j.ID)
		assert.Equal(t, "x", j.Payload)
		assert.Equal(t, 1, j.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls int32
	gaveUp := make(chan error, 1)
	attempts := make(chan int, 1)
	q := NewQueue("test", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("remote unavailable")
	}, QueueConfig{
		Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Millisecond},
		OnGiveUp: func(j Job, err error) {
			attempts <- j.Attempt
			gaveUp <- err
		},
	})
	q.Start(context.Background())
	defer stopQueue(t, q)

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	select {
	case err := <-gaveUp:
		assert.Equal(t, 3, <-attempts)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
		assert.False(t, errors.Is(err, ErrStopped))
	case <-time.After(2 * time.Second):
		t.Fatal("job never gave up")
	}
}

func TestQueueRecoversOnRetry(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, j Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("transient")
		}
		done <- j
		return nil
	}, QueueConfig{
		Retry:    RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond},
		OnGiveUp: func(Job, error) { t.Error("job should not give up") },
	})
	q.Start(context.Background())
	defer stopQueue(t, q)

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))
	select {
	case j := <-done:
		assert.Equal(t, 2, j.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(4))
	assert.Equal(t, 10*time.Second, p.Delay(5))
	assert.Equal(t, 10*time.Second, p.Delay(1000))

	d := RetryPolicy{}.withDefaults()
	assert.Equal(t, 3, d.MaxAttempts)
	assert.Equal(t, time.Second, d.BaseDelay)
	assert.Equal(t, time.Minute, d.MaxDelay)
}

func TestQueueAttemptTimeout(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		Retry:          RetryPolicy{MaxAttempts: 1},
		AttemptTimeout: 10 * time.Millisecond,
		OnGiveUp:       func(_ Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	defer stopQueue(t, q)

	require.NoError(t, q.Enqueue(Job{Type: "slow"}))
	select {
	case err := <-gaveUp:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("attempt was not bounded")
	}
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var processed int32
	q := NewQueue("test", func(context.Context, Job) error {
		<-release
		atomic.AddInt32(&processed, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "noop"}))
	}
	close(release)
	stopQueue(t, q)

	assert.Equal(t, int32(4), atomic.LoadInt32(&processed))
	assert.ErrorIs(t, q.Enqueue(Job{Type: "late"}), ErrStopped)
}

func TestQueueStopHandsPendingRetriesToGiveUp(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("test", func(context.Context, Job) error {
		return errors.New("remote unavailable")
	}, QueueConfig{
		Retry:    RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour},
		OnGiveUp: func(_ Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.jobs) == 0
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	stopQueue(t, q)
	select {
	case err := <-gaveUp:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("pending retry was dropped")
	}
}

func TestQueueStopDeadlineCancelsHandlers(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		Retry:    RetryPolicy{MaxAttempts: 3},
		OnGiveUp: func(_ Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{Type: "stuck"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(ctx), context.DeadlineExceeded)

	select {
	case err := <-gaveUp:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("stuck job was not reported")
	}
}
