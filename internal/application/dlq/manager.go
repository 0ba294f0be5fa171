// Package dlq contains the dead letter queue manager: durable capture of
// permanently-failed sync jobs, pattern analysis over the failure backlog,
// and the requeue/archive lifecycle.
package dlq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// originalQueue names the stage failed jobs are captured from
const originalQueue = "sync-pipeline"

// Replayer re-executes a rebuilt sync job. The orchestrator implements it;
// the indirection keeps the manager free of a package cycle.
type Replayer interface {
	ProcessJob(ctx context.Context, job *sync.SyncJob) (*sync.SyncResult, error)
}

// PayloadArchiver exports a dead-letter payload snapshot to external storage
// and returns the storage key
type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, job *dlq.DeadLetterJob) (string, error)
}

// Config bounds the manager
type Config struct {
	// MaxRetries is the retry bound recorded on captured jobs
	MaxRetries int
	// SystemicThreshold is the bucket size above which a failure pattern is
	// treated as a systemic issue
	SystemicThreshold int64
	// PatternWindow is the default analysis window
	PatternWindow time.Duration
}

// DefaultConfig returns the default manager configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		SystemicThreshold: 10,
		PatternWindow:     24 * time.Hour,
	}
}

// Manager owns the dead letter queue lifecycle. Jobs are never dropped:
// capture persists the complete original payload before the failure is
// reported anywhere else.
type Manager struct {
	repo      dlq.Repository
	publisher shared.EventPublisher
	cfg       Config
	logger    *zap.Logger

	// optional collaborators
	replayer        Replayer
	archiver        PayloadArchiver
	businessMetrics *telemetry.BusinessMetrics
}

// NewManager creates the DLQ manager
func NewManager(repo dlq.Repository, publisher shared.EventPublisher, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SystemicThreshold <= 0 {
		cfg.SystemicThreshold = DefaultConfig().SystemicThreshold
	}
	if cfg.PatternWindow <= 0 {
		cfg.PatternWindow = DefaultConfig().PatternWindow
	}
	return &Manager{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetReplayer sets the component that re-executes requeued jobs
func (m *Manager) SetReplayer(r Replayer) {
	m.replayer = r
}

// SetArchiver sets the external payload archiver
func (m *Manager) SetArchiver(a PayloadArchiver) {
	m.archiver = a
}

// SetBusinessMetrics sets the business metrics collector
func (m *Manager) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	m.businessMetrics = bm
}

// ---------------------------------------------------------------------------
// Capture
// ---------------------------------------------------------------------------

// Enqueue captures a permanently-failed job with its complete payload and
// failure context. A job that already has an open dead-letter entry (a
// replay that failed again) updates that entry instead of inserting a
// sibling with the same original job ID. Critical entries publish a distinct
// alert event after the job is durably persisted.
func (m *Manager) Enqueue(ctx context.Context, job *sync.SyncJob, failureType sync.FailureType, failureReason string) error {
	existing, err := m.repo.FindOpenByOriginalJobID(ctx, job.TenantID, job.ID)
	if err != nil && !errors.Is(err, dlq.ErrJobNotFound) {
		return fmt.Errorf("dlq: failed to look up open dead letter entry: %w", err)
	}
	if existing != nil {
		return m.recordRecurrence(ctx, existing, job, failureType, failureReason)
	}

	dead, err := dlq.NewDeadLetterJob(job, originalQueue, failureType, failureReason, m.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("dlq: failed to build dead letter entry: %w", err)
	}

	if err := m.repo.Save(ctx, dead); err != nil {
		return fmt.Errorf("dlq: failed to persist dead letter entry: %w", err)
	}

	m.logger.Warn("job dead-lettered",
		zap.String("dead_letter_id", dead.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("platform", job.Platform.String()),
		zap.String("failure_type", failureType.String()),
		zap.Bool("critical", dead.IsCritical),
	)

	if m.businessMetrics != nil {
		m.businessMetrics.RecordDeadLettered(ctx, job.TenantID, job.Platform.String(), failureType.String(), dead.IsCritical)
	}

	if dead.IsCritical && m.publisher != nil {
		event := dlq.NewCriticalJobDeadLetteredEvent(dead)
		if err := m.publisher.Publish(ctx, event); err != nil {
			// the entry is already durable; a lost alert is logged, not fatal
			m.logger.Error("failed to publish critical dead-letter alert",
				zap.String("dead_letter_id", dead.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// recordRecurrence folds a repeat failure into the job's existing open entry.
// The original alert already fired for critical entries, so a recurrence is
// logged and counted but does not re-alert.
func (m *Manager) recordRecurrence(ctx context.Context, dead *dlq.DeadLetterJob, job *sync.SyncJob, failureType sync.FailureType, failureReason string) error {
	if err := dead.RecordRecurrence(failureType, failureReason, job.Attempt); err != nil {
		return fmt.Errorf("dlq: failed to record recurring failure: %w", err)
	}
	if err := m.repo.Save(ctx, dead); err != nil {
		return fmt.Errorf("dlq: failed to persist recurring failure: %w", err)
	}

	m.logger.Warn("dead-lettered job failed again",
		zap.String("dead_letter_id", dead.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("failure_type", failureType.String()),
		zap.Int("retry_count", dead.RetryCount),
	)

	if m.businessMetrics != nil {
		m.businessMetrics.RecordDeadLettered(ctx, job.TenantID, job.Platform.String(), failureType.String(), dead.IsCritical)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// ListByPattern returns dead-letter jobs matching the filter, newest first
func (m *Manager) ListByPattern(ctx context.Context, tenantID uuid.UUID, filter dlq.PatternFilter) ([]dlq.DeadLetterJob, error) {
	return m.repo.FindByFilter(ctx, tenantID, filter)
}

// GetJob returns one dead-letter job
func (m *Manager) GetJob(ctx context.Context, tenantID, id uuid.UUID) (*dlq.DeadLetterJob, error) {
	return m.repo.FindByID(ctx, tenantID, id)
}

// CountByStatus returns the backlog per lifecycle status
func (m *Manager) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[dlq.Status]int64, error) {
	return m.repo.CountByStatus(ctx, tenantID)
}

// AnalyzePatterns aggregates recent failures into (failure type, platform)
// buckets. Buckets above the systemic threshold publish a systemic-failure
// alert: many jobs failing the same way is one problem, not many.
func (m *Manager) AnalyzePatterns(ctx context.Context, tenantID uuid.UUID, window time.Duration) ([]dlq.PatternSummary, error) {
	if window <= 0 {
		window = m.cfg.PatternWindow
	}
	since := time.Now().Add(-window)

	summaries, err := m.repo.Summarize(ctx, tenantID, dlq.PatternFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("dlq: pattern analysis failed: %w", err)
	}

	windowHours := int(window / time.Hour)
	for _, s := range summaries {
		if s.Count < m.cfg.SystemicThreshold {
			continue
		}
		m.logger.Warn("systemic failure pattern detected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("failure_type", s.FailureType.String()),
			zap.String("platform", s.Platform.String()),
			zap.Int64("count", s.Count),
		)
		if m.publisher != nil {
			event := dlq.NewSystemicFailureDetectedEvent(tenantID, s, windowHours)
			if err := m.publisher.Publish(ctx, event); err != nil {
				m.logger.Error("failed to publish systemic failure alert", zap.Error(err))
			}
		}
	}

	return summaries, nil
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

// Requeue replays a dead-lettered job through the pipeline with a fresh
// attempt budget. The rebuilt job keeps its original ID and origin timestamp
// so audit correlation and ordering tie-breaks survive the round trip.
func (m *Manager) Requeue(ctx context.Context, tenantID, id uuid.UUID) (*sync.SyncResult, error) {
	if m.replayer == nil {
		return nil, fmt.Errorf("dlq: no replayer configured")
	}

	dead, err := m.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := dead.MarkRecovering(); err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, dead); err != nil {
		return nil, fmt.Errorf("dlq: failed to persist recovering status: %w", err)
	}

	job := dead.ToSyncJob()
	result, replayErr := m.replayer.ProcessJob(ctx, job)

	if replayErr != nil || result == nil || !result.Success {
		reason := "replay failed"
		if replayErr != nil {
			reason = replayErr.Error()
		}
		// the pipeline's dead-letter sink may already have folded the repeat
		// failure into this entry; re-read so a stale copy is not written back
		current, ferr := m.repo.FindByID(ctx, tenantID, id)
		if ferr != nil {
			current = dead
		}
		if current.Status == dlq.StatusRecovering {
			if err := current.MarkFailedAgain(reason); err != nil {
				m.logger.Error("failed to return job to failed status",
					zap.String("dead_letter_id", current.ID.String()),
					zap.Error(err),
				)
			} else if err := m.repo.Save(ctx, current); err != nil {
				m.logger.Error("failed to persist failed-again status",
					zap.String("dead_letter_id", current.ID.String()),
					zap.Error(err),
				)
			}
		}
		return result, replayErr
	}

	if err := dead.MarkRecovered(); err != nil {
		return result, err
	}
	if err := m.repo.Save(ctx, dead); err != nil {
		return result, fmt.Errorf("dlq: failed to persist recovered status: %w", err)
	}

	m.logger.Info("dead-lettered job recovered",
		zap.String("dead_letter_id", dead.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return result, nil
}

// RequeueRecoverable replays the oldest recoverable failures for a tenant,
// up to limit. Only transient classifications are eligible; business and
// validation failures wait for an operator.
func (m *Manager) RequeueRecoverable(ctx context.Context, tenantID uuid.UUID, limit int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	status := dlq.StatusFailed
	jobs, err := m.repo.FindByFilter(ctx, tenantID, dlq.PatternFilter{Status: &status, Limit: limit})
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range jobs {
		if !isTransient(jobs[i].FailureType) {
			continue
		}
		result, err := m.Requeue(ctx, tenantID, jobs[i].ID)
		if err == nil && result != nil && result.Success {
			recovered++
		}
	}
	return recovered, nil
}

// isTransient reports whether a failure classification may clear on its own
func isTransient(t sync.FailureType) bool {
	switch t {
	case sync.FailureRateLimit, sync.FailureNetworkTimeout, sync.FailureServerError, sync.FailureCircuitOpen:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Archival
// ---------------------------------------------------------------------------

// Archive closes a dead-letter job without replay. When an archiver is
// configured the payload snapshot is exported to object storage first and the
// storage key recorded on the entry.
func (m *Manager) Archive(ctx context.Context, tenantID, id uuid.UUID) (*dlq.DeadLetterJob, error) {
	dead, err := m.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	archiveKey := ""
	if m.archiver != nil {
		archiveKey, err = m.archiver.ArchivePayload(ctx, dead)
		if err != nil {
			return nil, fmt.Errorf("dlq: payload archival failed: %w", err)
		}
	}

	if err := dead.Archive(archiveKey); err != nil {
		return nil, err
	}
	if err := m.repo.Save(ctx, dead); err != nil {
		return nil, fmt.Errorf("dlq: failed to persist archived status: %w", err)
	}

	m.logger.Info("dead-lettered job archived",
		zap.String("dead_letter_id", dead.ID.String()),
		zap.String("archive_key", archiveKey),
	)
	return dead, nil
}

// ArchiveOlderThan archives recovered jobs captured before the cutoff,
// returning how many were archived. Used by the retention sweep.
func (m *Manager) ArchiveOlderThan(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	status := dlq.StatusRecovered
	jobs, err := m.repo.FindByFilter(ctx, tenantID, dlq.PatternFilter{Status: &status, Until: &cutoff, Limit: limit})
	if err != nil {
		return 0, err
	}

	archived := 0
	for i := range jobs {
		if _, err := m.Archive(ctx, tenantID, jobs[i].ID); err != nil {
			m.logger.Warn("retention sweep failed to archive job",
				zap.String("dead_letter_id", jobs[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		archived++
	}
	return archived, nil
}
