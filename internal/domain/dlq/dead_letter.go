// Package dlq contains the dead-letter queue bounded context: durable storage
// for permanently-failed sync jobs, pattern analysis over failures, and the
// recovery/requeue lifecycle.
package dlq

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

var (
	ErrJobNotFound          = errors.New("dlq: dead letter job not found")
	ErrJobNotRecoverable    = errors.New("dlq: job is not in a recoverable status")
	ErrJobAlreadyArchived   = errors.New("dlq: job already archived")
	ErrInvalidStatusChange  = errors.New("dlq: invalid status transition")
	ErrEmptyPayload         = errors.New("dlq: original payload is required")
	ErrEmptyOriginalQueue   = errors.New("dlq: original queue is required")
	ErrInvalidFailureReason = errors.New("dlq: failure reason is required")
)

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status is the dead-letter job lifecycle status
type Status string

const (
	// StatusFailed is the initial status of every dead-lettered job
	StatusFailed Status = "FAILED"
	// StatusRecovering indicates a requeue is in flight
	StatusRecovering Status = "RECOVERING"
	// StatusRecovered indicates the replayed job succeeded
	StatusRecovered Status = "RECOVERED"
	// StatusArchived indicates the job was closed without replay
	StatusArchived Status = "ARCHIVED"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusFailed, StatusRecovering, StatusRecovered, StatusArchived:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Priority orders dead-letter jobs for operator attention
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// ---------------------------------------------------------------------------
// DeadLetterJob
// ---------------------------------------------------------------------------

// DeadLetterJob is a permanently-failed sync job persisted with its full
// original payload and failure context. Jobs are created only after the retry
// engine exhausts its attempts or the failure is classified non-recoverable;
// they are never dropped.
type DeadLetterJob struct {
	// ID is the unique dead-letter identifier
	ID uuid.UUID
	// TenantID is the tenant the failed job belonged to
	TenantID uuid.UUID
	// OriginalQueue names the pipeline stage the job failed in
	OriginalQueue string
	// OriginalJobID is the failed sync job's ID, preserved for audit
	// correlation across requeues
	OriginalJobID uuid.UUID
	// OriginalPayload is the verbatim payload of the failed job
	OriginalPayload []byte
	// Platform is the marketplace the job targeted
	Platform sync.PlatformCode
	// ChannelID is the sales channel
	ChannelID string
	// Operation is the adapter operation that failed
	Operation sync.OperationType
	// FailureType is the final classification of the failure
	FailureType sync.FailureType
	// FailureReason is the human-readable failure description
	FailureReason string
	// IdempotencyKey is the failed job's idempotency key, preserved so a
	// requeued job passes back through the same deduplication slot
	IdempotencyKey string
	// RetryCount is how many attempts were made before dead-lettering
	RetryCount int
	// MaxRetries is the retry bound that was in effect
	MaxRetries int
	// Status is the lifecycle status
	Status Status
	// Priority orders jobs for operator attention
	Priority Priority
	// IsCritical flags jobs that must alert distinctly from routine failures
	IsCritical bool
	// ArchiveKey is the object-storage key of the archived payload snapshot
	// (set when the job is archived to external storage)
	ArchiveKey string
	// OriginatedAt is the failed job's origin timestamp, preserved so a
	// requeued job keeps its place in ordering tie-breaks
	OriginatedAt time.Time
	// CreatedAt is when the job was dead-lettered
	CreatedAt time.Time
	// UpdatedAt is when the job last changed status
	UpdatedAt time.Time
	// RecoveredAt is when the replayed job succeeded
	RecoveredAt *time.Time
}

// NewDeadLetterJob creates a dead-letter entry for a permanently-failed sync job
func NewDeadLetterJob(job *sync.SyncJob, originalQueue string, failureType sync.FailureType, failureReason string, maxRetries int) (*DeadLetterJob, error) {
	if originalQueue == "" {
		return nil, ErrEmptyOriginalQueue
	}
	if len(job.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if failureReason == "" {
		return nil, ErrInvalidFailureReason
	}

	now := time.Now()
	d := &DeadLetterJob{
		ID:              uuid.New(),
		TenantID:        job.TenantID,
		OriginalQueue:   originalQueue,
		OriginalJobID:   job.ID,
		OriginalPayload: job.Payload,
		Platform:        job.Platform,
		ChannelID:       job.ChannelID,
		Operation:       job.Operation,
		FailureType:     failureType,
		FailureReason:   failureReason,
		IdempotencyKey:  job.IdempotencyKey,
		RetryCount:      job.Attempt,
		MaxRetries:      maxRetries,
		Status:          StatusFailed,
		Priority:        priorityFor(failureType),
		IsCritical:      isCriticalFailure(failureType, job.Operation),
		OriginatedAt:    job.OriginatedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return d, nil
}

// priorityFor derives operator priority from the failure classification
func priorityFor(t sync.FailureType) Priority {
	switch t {
	case sync.FailureAuth:
		// expired or invalid credentials block every subsequent call
		return PriorityHigh
	case sync.FailureBusinessLogic, sync.FailureValidation:
		return PriorityNormal
	default:
		return PriorityNormal
	}
}

// isCriticalFailure flags failures that must page rather than queue. Auth
// failures and failed order pushes risk silent order loss.
func isCriticalFailure(t sync.FailureType, op sync.OperationType) bool {
	if t == sync.FailureAuth {
		return true
	}
	return op == sync.OperationOrderSync
}

// ---------------------------------------------------------------------------
// Status machine
// ---------------------------------------------------------------------------

// MarkRecovering transitions the job into the recovering state ahead of a
// requeue. Only failed jobs can be recovered.
func (d *DeadLetterJob) MarkRecovering() error {
	if d.Status != StatusFailed {
		return ErrJobNotRecoverable
	}
	d.Status = StatusRecovering
	d.UpdatedAt = time.Now()
	return nil
}

// MarkRecovered records a successful replay
func (d *DeadLetterJob) MarkRecovered() error {
	if d.Status != StatusRecovering {
		return ErrInvalidStatusChange
	}
	now := time.Now()
	d.Status = StatusRecovered
	d.RecoveredAt = &now
	d.UpdatedAt = now
	return nil
}

// MarkFailedAgain returns a recovering job to the failed state after an
// unsuccessful replay
func (d *DeadLetterJob) MarkFailedAgain(reason string) error {
	if d.Status != StatusRecovering {
		return ErrInvalidStatusChange
	}
	d.Status = StatusFailed
	if reason != "" {
		d.FailureReason = reason
	}
	d.UpdatedAt = time.Now()
	return nil
}

// Archive closes the job without replay. Recovered and failed jobs can be
// archived; archiving twice is an error.
func (d *DeadLetterJob) Archive(archiveKey string) error {
	if d.Status == StatusArchived {
		return ErrJobAlreadyArchived
	}
	if d.Status == StatusRecovering {
		return ErrInvalidStatusChange
	}
	d.Status = StatusArchived
	d.ArchiveKey = archiveKey
	d.UpdatedAt = time.Now()
	return nil
}

// RecordRecurrence refreshes the failure context when the same original job
// dead-letters again instead of inserting a second entry. A recovering entry
// returns to FAILED; terminal entries cannot recur.
func (d *DeadLetterJob) RecordRecurrence(failureType sync.FailureType, reason string, retryCount int) error {
	if d.Status == StatusRecovered || d.Status == StatusArchived {
		return ErrInvalidStatusChange
	}
	d.Status = StatusFailed
	d.FailureType = failureType
	if reason != "" {
		d.FailureReason = reason
	}
	if retryCount > 0 {
		d.RetryCount = retryCount
	}
	d.Priority = priorityFor(failureType)
	d.UpdatedAt = time.Now()
	return nil
}

// ToSyncJob rebuilds a sync job for requeue: fresh attempt counter, original
// payload, idempotency key and correlation ID preserved, origin timestamp
// kept so ordering tie-breaks still use the original request time.
func (d *DeadLetterJob) ToSyncJob() *sync.SyncJob {
	return &sync.SyncJob{
		ID:             d.OriginalJobID,
		TenantID:       d.TenantID,
		ChannelID:      d.ChannelID,
		Platform:       d.Platform,
		Operation:      d.Operation,
		Payload:        d.OriginalPayload,
		IdempotencyKey: d.IdempotencyKey,
		Attempt:        0,
		OriginatedAt:   d.OriginatedAt,
		CreatedAt:      time.Now(),
	}
}
