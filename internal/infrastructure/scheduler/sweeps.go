package scheduler

import (
	"context"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/dlq"
)

// sweepTimeout bounds one sweep run
const sweepTimeout = time.Minute

// ConflictEscalator escalates open conflicts past their resolution deadline.
// The conflict service implements it.
type ConflictEscalator interface {
	EscalateOverdue(ctx context.Context, now time.Time) (int, error)
}

// EscalationSweeper periodically escalates overdue conflicts so nothing stays
// open past its severity's resolution window unnoticed.
type EscalationSweeper struct {
	escalator ConflictEscalator
	interval  time.Duration
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewEscalationSweeper creates a new escalation sweeper
func NewEscalationSweeper(escalator ConflictEscalator, interval time.Duration, logger *zap.Logger) *EscalationSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationSweeper{
		escalator: escalator,
		interval:  interval,
		logger:    logger,
	}
}

// Start starts the sweep loop
func (s *EscalationSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Conflict escalation sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop gracefully stops the sweeper
func (s *EscalationSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EscalationSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *EscalationSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	escalated, err := s.escalator.EscalateOverdue(sweepCtx, time.Now())
	if err != nil {
		s.logger.Error("Conflict escalation sweep failed", zap.Error(err))
		return
	}
	if escalated > 0 {
		s.logger.Info("Conflict escalation sweep completed", zap.Int("escalated", escalated))
	}
}

// ---------------------------------------------------------------------------
// DLQ sweep
// ---------------------------------------------------------------------------

// TenantSource lists the tenants background sweeps iterate over
type TenantSource interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DeadLetterRecoverer is the slice of the DLQ manager the sweep drives
type DeadLetterRecoverer interface {
	RequeueRecoverable(ctx context.Context, tenantID uuid.UUID, limit int) (int, error)
	AnalyzePatterns(ctx context.Context, tenantID uuid.UUID, window time.Duration) ([]dlq.PatternSummary, error)
	ArchiveOlderThan(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) (int, error)
}

// DLQSweepConfig holds configuration for the dead-letter sweep
type DLQSweepConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
	// RequeueBatch caps replays per tenant per run
	RequeueBatch int
	// RetentionDays is how long recovered entries stay before archival;
	// 0 disables the retention pass
	RetentionDays int
	// ArchiveBatch caps archived entries per tenant per run
	ArchiveBatch int
}

// DefaultDLQSweepConfig returns default configuration
func DefaultDLQSweepConfig() DLQSweepConfig {
	return DLQSweepConfig{
		Interval:      10 * time.Minute,
		RequeueBatch:  10,
		RetentionDays: 30,
		ArchiveBatch:  50,
	}
}

// DLQSweeper periodically replays recoverable dead-letter entries, runs
// failure pattern analysis, and applies the archive retention policy.
type DLQSweeper struct {
	manager DeadLetterRecoverer
	tenants TenantSource
	config  DLQSweepConfig
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        gosync.WaitGroup
	mu        gosync.Mutex
	isRunning bool
}

// NewDLQSweeper creates a new DLQ sweeper
func NewDLQSweeper(manager DeadLetterRecoverer, tenants TenantSource, config DLQSweepConfig, logger *zap.Logger) *DLQSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultDLQSweepConfig().Interval
	}
	if config.RequeueBatch <= 0 {
		config.RequeueBatch = DefaultDLQSweepConfig().RequeueBatch
	}
	if config.ArchiveBatch <= 0 {
		config.ArchiveBatch = DefaultDLQSweepConfig().ArchiveBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DLQSweeper{
		manager: manager,
		tenants: tenants,
		config:  config,
		logger:  logger,
	}
}

// Start starts the sweep loop
func (s *DLQSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("DLQ sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("requeue_batch", s.config.RequeueBatch),
		zap.Int("retention_days", s.config.RetentionDays),
	)
	return nil
}

// Stop gracefully stops the sweeper
func (s *DLQSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DLQSweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass over all tenants. Per-tenant failures are logged and
// the pass continues; one broken tenant must not starve the rest.
func (s *DLQSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	tenantIDs, err := s.tenants.GetActiveTenantIDs(sweepCtx)
	if err != nil {
		s.logger.Error("DLQ sweep failed to list tenants", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		recovered, err := s.manager.RequeueRecoverable(sweepCtx, tenantID, s.config.RequeueBatch)
		if err != nil {
			s.logger.Error("DLQ requeue sweep failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else if recovered > 0 {
			s.logger.Info("DLQ sweep recovered jobs",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("recovered", recovered),
			)
		}

		if _, err := s.manager.AnalyzePatterns(sweepCtx, tenantID, 0); err != nil {
			s.logger.Error("DLQ pattern analysis failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}

		if s.config.RetentionDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
			archived, err := s.manager.ArchiveOlderThan(sweepCtx, tenantID, cutoff, s.config.ArchiveBatch)
			if err != nil {
				s.logger.Error("DLQ retention sweep failed",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err),
				)
			} else if archived > 0 {
				s.logger.Info("DLQ retention sweep archived jobs",
					zap.String("tenant_id", tenantID.String()),
					zap.Int("archived", archived),
				)
			}
		}
	}
}
