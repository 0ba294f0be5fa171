package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Metrics Persistence
// ---------------------------------------------------------------------------

// SyncMetricsRecord is the persisted per-operation metrics row. The core
// records one row for every orchestrated operation regardless of outcome;
// schema and migration concerns belong to the persistence collaborator.
type SyncMetricsRecord struct {
	// ID is the unique record identifier
	ID uuid.UUID
	// TenantID is the tenant the operation ran for
	TenantID uuid.UUID
	// Platform is the marketplace the operation targeted
	Platform PlatformCode
	// ChannelID is the sales channel
	ChannelID string
	// Operation is the adapter operation performed
	Operation OperationType
	// JobID correlates the record with its sync job
	JobID uuid.UUID
	// Success indicates the final outcome
	Success bool
	// FailureType is the final classification when Success is false
	FailureType FailureType
	// RetryAttempts is the number of retries performed
	RetryAttempts int
	// APICalls is the number of outbound platform calls
	APICalls int
	// DataSize is the response payload size in bytes
	DataSize int64
	// CircuitState is the breaker state observed at completion
	CircuitState string
	// Duration is the total execution time
	Duration time.Duration
	// RecordedAt is when the record was written
	RecordedAt time.Time
}

// SyncMetricsFilter defines filter criteria for metrics queries
type SyncMetricsFilter struct {
	// Platform filters by marketplace (optional)
	Platform *PlatformCode
	// Operation filters by operation type (optional)
	Operation *OperationType
	// Success filters by outcome (optional)
	Success *bool
	// Since filters records from this time
	Since *time.Time
	// Until filters records until this time
	Until *time.Time
	// Limit caps the number of returned records (0 = repository default)
	Limit int
}

// SyncMetricsRepository persists per-operation metrics records
type SyncMetricsRepository interface {
	// Save writes a metrics record
	Save(ctx context.Context, record *SyncMetricsRecord) error

	// FindByFilter returns records matching the filter, newest first
	FindByFilter(ctx context.Context, tenantID uuid.UUID, filter SyncMetricsFilter) ([]SyncMetricsRecord, error)
}
