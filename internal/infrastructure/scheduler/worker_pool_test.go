package scheduler

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/sync"
)

// blockingProcessor records processed jobs and can hold workers until released
type blockingProcessor struct {
	mu      gosync.Mutex
	jobs    []*sync.SyncJob
	done    chan struct{}
	failAll bool
	block   chan struct{}
}

func newBlockingProcessor(expected int) *blockingProcessor {
	return &blockingProcessor{done: make(chan struct{}, expected)}
}

func (p *blockingProcessor) ProcessJob(ctx context.Context, job *sync.SyncJob) (*sync.SyncResult, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	p.jobs = append(p.jobs, job)
	p.mu.Unlock()
	p.done <- struct{}{}

	if p.failAll {
		return nil, sync.NewClassifiedError(sync.FailureServerError, true, errors.New("platform down"))
	}
	return sync.NewSuccessResult(job.Platform, job.ChannelID, "", ""), nil
}

func (p *blockingProcessor) processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func waitFor(t *testing.T, done chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for job %d of %d", i+1, n)
		}
	}
}

func testJob(tenantID uuid.UUID) *sync.SyncJob {
	return sync.NewSyncJob(tenantID, "channel-1", sync.PlatformCodeTokopedia,
		sync.OperationOrderSync, []byte(`{"order_number":"SO-1"}`), "")
}

func TestWorkerPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerPoolConfig)
		wantErr bool
	}{
		{"default is valid", func(c *WorkerPoolConfig) {}, false},
		{"zero workers", func(c *WorkerPoolConfig) { c.Workers = 0 }, true},
		{"zero queue", func(c *WorkerPoolConfig) { c.QueueSize = 0 }, true},
		{"zero timeout", func(c *WorkerPoolConfig) { c.JobTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultWorkerPoolConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncWorkerPool_ProcessesSubmittedJobs(t *testing.T) {
	processor := newBlockingProcessor(3)
	pool, err := NewSyncWorkerPool(DefaultWorkerPoolConfig(), processor, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop(context.Background())

	tenantID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(testJob(tenantID)))
	}

	waitFor(t, processor.done, 3)
	assert.Equal(t, 3, processor.processed())

	history := pool.History(10)
	require.Len(t, history, 3)
	assert.True(t, history[0].Success)
	assert.Equal(t, tenantID, history[0].TenantID)
}

func TestSyncWorkerPool_FailedJobIsNotRequeued(t *testing.T) {
	processor := newBlockingProcessor(1)
	processor.failAll = true
	pool, err := NewSyncWorkerPool(DefaultWorkerPoolConfig(), processor, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop(context.Background())

	require.NoError(t, pool.Submit(testJob(uuid.New())))
	waitFor(t, processor.done, 1)

	// the pipeline owns retries and dead-lettering; the pool runs each job once
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, processor.processed())

	history := pool.History(1)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, sync.FailureServerError, history[0].FailureType)
	assert.NotEmpty(t, history[0].Error)
}

func TestSyncWorkerPool_SubmitBeforeStartFails(t *testing.T) {
	pool, err := NewSyncWorkerPool(DefaultWorkerPoolConfig(), newBlockingProcessor(0), nil)
	require.NoError(t, err)

	err = pool.Submit(testJob(uuid.New()))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestSyncWorkerPool_QueueFull(t *testing.T) {
	processor := newBlockingProcessor(4)
	processor.block = make(chan struct{})

	cfg := WorkerPoolConfig{Workers: 1, QueueSize: 2, JobTimeout: time.Minute}
	pool, err := NewSyncWorkerPool(cfg, processor, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer func() {
		close(processor.block)
		pool.Stop(context.Background())
	}()

	tenantID := uuid.New()
	// with the single worker held, the queue fills and submissions are
	// rejected rather than blocking the caller
	accepted := 0
	require.Eventually(t, func() bool {
		err := pool.Submit(testJob(tenantID))
		if err == nil {
			accepted++
			return false
		}
		return errors.Is(err, ErrJobQueueFull)
	}, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, accepted, 2)
}

func TestSyncWorkerPool_HistoryByTenant(t *testing.T) {
	processor := newBlockingProcessor(2)
	pool, err := NewSyncWorkerPool(DefaultWorkerPoolConfig(), processor, nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop(context.Background())

	tenantA := uuid.New()
	tenantB := uuid.New()
	require.NoError(t, pool.Submit(testJob(tenantA)))
	require.NoError(t, pool.Submit(testJob(tenantB)))
	waitFor(t, processor.done, 2)

	history := pool.HistoryByTenant(tenantA, 10)
	require.Len(t, history, 1)
	assert.Equal(t, tenantA, history[0].TenantID)
}

func TestSyncWorkerPool_StopIsIdempotent(t *testing.T) {
	pool, err := NewSyncWorkerPool(DefaultWorkerPoolConfig(), newBlockingProcessor(0), nil)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Stop(context.Background()))
	require.NoError(t, pool.Stop(context.Background()))
}
