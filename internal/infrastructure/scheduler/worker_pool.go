// Package scheduler contains the background execution layer: the worker pool
// that drains queued sync jobs through the error-handling pipeline, and the
// periodic sweeps for conflict escalation and dead-letter recovery.
package scheduler

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// JobProcessor runs one sync job through the error-handling pipeline. The
// orchestrator implements it; workers never talk to adapters directly.
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *sync.SyncJob) (*sync.SyncResult, error)
}

// WorkerPoolConfig holds configuration for the sync worker pool
type WorkerPoolConfig struct {
	// Workers is the number of concurrent job workers
	Workers int
	// QueueSize bounds the pending job queue
	QueueSize int
	// JobTimeout is the maximum time one job may run, covering all retries
	JobTimeout time.Duration
}

// DefaultWorkerPoolConfig returns default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:    5,
		QueueSize:  100,
		JobTimeout: 2 * time.Minute,
	}
}

// Validate validates the configuration
func (c *WorkerPoolConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// JobOutcome records one processed job for monitoring
type JobOutcome struct {
	JobID       uuid.UUID
	TenantID    uuid.UUID
	Platform    sync.PlatformCode
	Operation   sync.OperationType
	Success     bool
	FailureType sync.FailureType
	Error       string
	Duration    time.Duration
	CompletedAt time.Time
}

// SyncWorkerPool drains queued sync jobs through the pipeline. Failure
// handling lives entirely in the pipeline: a job the pipeline gives up on is
// already dead-lettered by the time the worker sees the error, so the pool
// never re-queues.
type SyncWorkerPool struct {
	config    WorkerPoolConfig
	processor JobProcessor
	logger    *zap.Logger

	jobs      chan *sync.SyncJob
	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool

	// Outcome history for monitoring (in-memory, limited size)
	historyMu  gosync.RWMutex
	history    []JobOutcome
	maxHistory int
}

// NewSyncWorkerPool creates a new sync worker pool
func NewSyncWorkerPool(config WorkerPoolConfig, processor JobProcessor, logger *zap.Logger) (*SyncWorkerPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncWorkerPool{
		config:     config,
		processor:  processor,
		logger:     logger,
		jobs:       make(chan *sync.SyncJob, config.QueueSize),
		history:    make([]JobOutcome, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the worker pool
func (p *SyncWorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Sync worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the pool, draining queued jobs until the context ends
func (p *SyncWorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Sync worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Sync worker pool stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for execution
func (p *SyncWorkerPool) Submit(job *sync.SyncJob) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		p.logger.Debug("Sync job queued",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("platform", job.Platform.String()),
			zap.String("operation", job.Operation.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (p *SyncWorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Sync job channel closed", zap.Int("worker_id", workerID))
				return
			}
			p.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job through the pipeline
func (p *SyncWorkerPool) processJob(ctx context.Context, job *sync.SyncJob, workerID int) {
	started := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	var result *sync.SyncResult
	var err error
	labels := telemetry.OperationLabels(job.Operation.String(), map[string]string{
		telemetry.ProfilingLabelTenantID: job.TenantID.String(),
		"platform":                       job.Platform.String(),
	})
	telemetry.WithProfilingLabels(jobCtx, labels, func(c context.Context) {
		result, err = p.processor.ProcessJob(c, job)
	})
	duration := time.Since(started)

	outcome := JobOutcome{
		JobID:       job.ID,
		TenantID:    job.TenantID,
		Platform:    job.Platform,
		Operation:   job.Operation,
		Duration:    duration,
		CompletedAt: time.Now(),
	}

	if err != nil {
		classified := sync.Classify(err)
		outcome.FailureType = classified.Type
		outcome.Error = classified.Error()
		// the pipeline has already dead-lettered the job; nothing to re-queue
		p.logger.Warn("Sync job finished with failure",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("platform", job.Platform.String()),
			zap.String("failure_type", classified.Type.String()),
			zap.Duration("duration", duration),
		)
	} else {
		outcome.Success = result != nil && result.Success
		p.logger.Info("Sync job completed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("platform", job.Platform.String()),
			zap.String("operation", job.Operation.String()),
			zap.Duration("duration", duration),
		)
	}

	p.addToHistory(outcome)
}

// addToHistory records a processed job, newest first
func (p *SyncWorkerPool) addToHistory(outcome JobOutcome) {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()

	p.history = append([]JobOutcome{outcome}, p.history...)
	if len(p.history) > p.maxHistory {
		p.history = p.history[:p.maxHistory]
	}
}

// History returns recent job outcomes, newest first
func (p *SyncWorkerPool) History(limit int) []JobOutcome {
	p.historyMu.RLock()
	defer p.historyMu.RUnlock()

	if limit <= 0 || limit > len(p.history) {
		limit = len(p.history)
	}
	result := make([]JobOutcome, limit)
	copy(result, p.history[:limit])
	return result
}

// HistoryByTenant returns recent job outcomes for one tenant, newest first
func (p *SyncWorkerPool) HistoryByTenant(tenantID uuid.UUID, limit int) []JobOutcome {
	p.historyMu.RLock()
	defer p.historyMu.RUnlock()

	result := make([]JobOutcome, 0, limit)
	for _, outcome := range p.history {
		if outcome.TenantID == tenantID {
			result = append(result, outcome)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}
