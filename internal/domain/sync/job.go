package sync

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync Jobs
// ---------------------------------------------------------------------------

// OperationType identifies the adapter operation a job performs
type OperationType string

const (
	// OperationOrderSync pushes a normalized order to a platform
	OperationOrderSync OperationType = "ORDER_SYNC"
	// OperationInventoryPush publishes stock levels to a platform
	OperationInventoryPush OperationType = "INVENTORY_PUSH"
	// OperationPricePush publishes selling prices to a platform
	OperationPricePush OperationType = "PRICE_PUSH"
	// OperationStatusPull retrieves the platform's reported order status
	OperationStatusPull OperationType = "STATUS_PULL"
)

// IsValid returns true if the operation type is valid
func (t OperationType) IsValid() bool {
	switch t {
	case OperationOrderSync, OperationInventoryPush, OperationPricePush, OperationStatusPull:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationType
func (t OperationType) String() string {
	return string(t)
}

// SyncJob is one logical unit of work flowing through the pipeline. The
// orchestrator creates it on every sync request; the stage currently holding
// it (retry engine or DLQ) owns it; it is terminal on success or on DLQ
// permanent failure.
type SyncJob struct {
	// ID is the unique job identifier, preserved across requeues for audit
	ID uuid.UUID
	// TenantID is the tenant this job belongs to
	TenantID uuid.UUID
	// ChannelID is the sales channel the job targets
	ChannelID string
	// Platform is the target marketplace
	Platform PlatformCode
	// Operation is the adapter operation to perform
	Operation OperationType
	// Payload is the serialized operation payload, preserved verbatim for
	// the DLQ when the job fails permanently
	Payload []byte
	// IdempotencyKey deduplicates replays of the same logical request
	IdempotencyKey string
	// Attempt is the current attempt number (0 before the first try)
	Attempt int
	// OriginatedAt is the origin timestamp; jobs for the same
	// (tenant, product, location) key are ordered by it
	OriginatedAt time.Time
	// CreatedAt is when the job record was created
	CreatedAt time.Time
}

// NewSyncJob creates a sync job for the given operation
func NewSyncJob(tenantID uuid.UUID, channelID string, platform PlatformCode, op OperationType, payload []byte, idempotencyKey string) *SyncJob {
	now := time.Now()
	return &SyncJob{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ChannelID:      channelID,
		Platform:       platform,
		Operation:      op,
		Payload:        payload,
		IdempotencyKey: idempotencyKey,
		OriginatedAt:   now,
		CreatedAt:      now,
	}
}

// Validate performs fail-fast validation before the job enters the pipeline
func (j *SyncJob) Validate() error {
	if j.TenantID == uuid.Nil {
		return ErrInvalidTenantID
	}
	if j.ChannelID == "" {
		return ErrInvalidChannelID
	}
	if !j.Platform.IsValid() {
		return ErrUnsupportedPlatform
	}
	if !j.Operation.IsValid() {
		return ErrInvalidOperation
	}
	return nil
}
