// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the sync core. It tracks
// orchestrated operations, retry and dead-letter activity, and cross-channel
// conflict health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	syncOperationsTotal     *Counter
	syncRetriesTotal        *Counter
	deadLetteredTotal       *Counter
	conflictsDetectedTotal  *Counter
	conflictsResolvedTotal  *Counter
	conflictsEscalatedTotal *Counter

	// Distribution metrics
	syncDuration *Histogram

	// Gauge metrics (point-in-time values)
	dlqBacklog *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	dlqProvider DLQBacklogProvider
}

// DLQBacklogProvider provides dead-letter backlog data for periodic metrics
// collection. This interface keeps the telemetry layer from depending on the
// dlq domain directly.
type DLQBacklogProvider interface {
	// GetBacklogByStatus returns the number of dead-letter jobs per lifecycle
	// status for a tenant
	GetBacklogByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	DLQProvider     DLQBacklogProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:       cfg.Meter,
		logger:      logger,
		stopChan:    make(chan struct{}),
		dlqProvider: cfg.DLQProvider,
	}

	var err error

	// Sync pipeline metrics
	bm.syncOperationsTotal, err = NewCounter(
		cfg.Meter,
		"csync_sync_operations_total",
		"Total number of orchestrated sync operations",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	bm.syncRetriesTotal, err = NewCounter(
		cfg.Meter,
		"csync_sync_retries_total",
		"Total number of retry attempts across all operations",
		"{retries}",
	)
	if err != nil {
		return nil, err
	}

	bm.deadLetteredTotal, err = NewCounter(
		cfg.Meter,
		"csync_dead_lettered_total",
		"Total number of jobs moved to the dead letter queue",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	bm.syncDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "csync_sync_duration_seconds",
		Description: "End-to-end sync operation duration including retries",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	// Conflict metrics
	bm.conflictsDetectedTotal, err = NewCounter(
		cfg.Meter,
		"csync_conflicts_detected_total",
		"Total number of cross-channel conflicts detected",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	bm.conflictsResolvedTotal, err = NewCounter(
		cfg.Meter,
		"csync_conflicts_resolved_total",
		"Total number of conflicts resolved",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	bm.conflictsEscalatedTotal, err = NewCounter(
		cfg.Meter,
		"csync_conflicts_escalated_total",
		"Total number of conflicts escalated past their deadline",
		"{conflicts}",
	)
	if err != nil {
		return nil, err
	}

	// DLQ backlog gauge
	bm.dlqBacklog, err = NewGauge(
		cfg.Meter,
		"csync_dlq_backlog",
		"Current number of dead letter jobs per lifecycle status",
		"{jobs}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Sync Pipeline Metrics
// =============================================================================

// RecordSyncOperation records one orchestrated operation with its outcome.
// failureType is empty for successful operations.
func (bm *BusinessMetrics) RecordSyncOperation(ctx context.Context, tenantID uuid.UUID, platform, operation string, success bool, failureType string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
		attribute.Bool("success", success),
	}
	if failureType != "" {
		attrs = append(attrs, AttrFailureType.String(failureType))
	}

	bm.syncOperationsTotal.Inc(ctx, attrs...)
	bm.syncDuration.RecordDuration(ctx, duration,
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
	)
}

// RecordRetries adds the retries spent on one operation
func (bm *BusinessMetrics) RecordRetries(ctx context.Context, tenantID uuid.UUID, platform, operation string, retries int) {
	if retries <= 0 {
		return
	}
	bm.syncRetriesTotal.Add(ctx, int64(retries),
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrOperation.String(operation),
	)
}

// RecordDeadLettered records a job moving to the dead letter queue
func (bm *BusinessMetrics) RecordDeadLettered(ctx context.Context, tenantID uuid.UUID, platform, failureType string, critical bool) {
	bm.deadLetteredTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPlatform.String(platform),
		AttrFailureType.String(failureType),
		attribute.Bool("critical", critical),
	)
}

// =============================================================================
// Conflict Metrics
// =============================================================================

// RecordConflictDetected records a detected cross-channel conflict
func (bm *BusinessMetrics) RecordConflictDetected(ctx context.Context, tenantID uuid.UUID, conflictType, severity string) {
	bm.conflictsDetectedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConflictType.String(conflictType),
		AttrSeverity.String(severity),
	)
}

// RecordConflictResolved records a resolved conflict
func (bm *BusinessMetrics) RecordConflictResolved(ctx context.Context, tenantID uuid.UUID, conflictType string, auto bool) {
	bm.conflictsResolvedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConflictType.String(conflictType),
		attribute.Bool("auto", auto),
	)
}

// RecordConflictEscalated records an escalated conflict
func (bm *BusinessMetrics) RecordConflictEscalated(ctx context.Context, tenantID uuid.UUID, conflictType, severity string) {
	bm.conflictsEscalatedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrConflictType.String(conflictType),
		AttrSeverity.String(severity),
	)
}

// RecordDLQBacklog records the current backlog for one lifecycle status.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordDLQBacklog(ctx context.Context, tenantID uuid.UUID, status string, count int64) {
	bm.dlqBacklog.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
		AttrDLQStatus.String(status),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects DLQ backlog metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectDLQMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectDLQMetrics(ctx, tenantProvider)
		}
	}
}

// collectDLQMetrics collects DLQ backlog gauge metrics for all tenants.
func (bm *BusinessMetrics) collectDLQMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.dlqProvider == nil {
		bm.logger.Debug("No DLQ provider configured, skipping backlog metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		backlog, err := bm.dlqProvider.GetBacklogByStatus(ctx, tenantID)
		if err != nil {
			bm.logger.Warn("Failed to get DLQ backlog for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for status, count := range backlog {
			bm.RecordDLQBacklog(ctx, tenantID, status, count)
		}
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
