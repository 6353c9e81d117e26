package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("due-date", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "scan"}))
}

func TestQueueProcessesJobAndAssignsID(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("due-date", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "scan"}))

	select {
	case job := <-done:
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, "scan", job.Type)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var observed []error
	finished := make(chan struct{})

	q := NewQueue("due-date", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("store unavailable")
		}
		close(finished)
		return nil
	}, QueueConfig{
		MaxRetries: 3,
		RetryDelay: 5 * time.Millisecond,
		Observer: func(_ string, _ Job, err error) {
			mu.Lock()
			observed = append(observed, err)
			mu.Unlock()
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "scan"}))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed after retries")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(observed) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Error(t, observed[0])
	assert.NoError(t, observed[2])
	mu.Unlock()
}

func TestQueueStopIsIdempotent(t *testing.T) {
	q := NewQueue("due-date", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Stop()
	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{Type: "scan"}))
}

func TestQueueCoalescesJobsWithSameKey(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	q := NewQueue("due-date", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "scan", Key: "due-date-scan"}))
	err := q.Enqueue(Job{Type: "scan", Key: "due-date-scan"})
	assert.ErrorIs(t, err, ErrDuplicate)

	close(release)
	require.Eventually(t, func() bool {
		return q.Enqueue(Job{Type: "scan", Key: "due-date-scan"}) == nil
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	errs := make(chan error, 4)
	q := NewQueue("due-date", func(context.Context, Job) error {
		panic("nil record")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, Observer: func(_ string, _ Job, err error) {
		errs <- err
	}})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "scan"}))
	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "panicked")
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("due-date", nil, QueueConfig{RetryDelay: 10 * time.Millisecond, MaxRetryDelay: 50 * time.Millisecond})
	assert.Equal(t, 10*time.Millisecond, q.backoff(1))
	assert.Equal(t, 20*time.Millisecond, q.backoff(2))
	assert.Equal(t, 40*time.Millisecond, q.backoff(3))
	assert.Equal(t, 50*time.Millisecond, q.backoff(4))
}
