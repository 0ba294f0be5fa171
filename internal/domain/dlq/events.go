package dlq

import (
	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
)

// Event types published to the alerting collaborator
const (
	EventTypeCriticalJobDeadLettered = "dlq.critical_job_dead_lettered"
	EventTypeSystemicFailureDetected = "dlq.systemic_failure_detected"
)

// CriticalJobDeadLetteredEvent is published when a critical job lands in the
// DLQ. Alert rendering belongs to the alerting collaborator, not the core.
type CriticalJobDeadLetteredEvent struct {
	shared.BaseDomainEvent
	Platform      sync.PlatformCode  `json:"platform"`
	ChannelID     string             `json:"channel_id"`
	Operation     sync.OperationType `json:"operation"`
	FailureType   sync.FailureType   `json:"failure_type"`
	FailureReason string             `json:"failure_reason"`
	RetryCount    int                `json:"retry_count"`
}

// NewCriticalJobDeadLetteredEvent creates the alert event for a critical DLQ entry
func NewCriticalJobDeadLetteredEvent(job *DeadLetterJob) *CriticalJobDeadLetteredEvent {
	return &CriticalJobDeadLetteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCriticalJobDeadLettered, "DeadLetterJob", job.ID, job.TenantID),
		Platform:        job.Platform,
		ChannelID:       job.ChannelID,
		Operation:       job.Operation,
		FailureType:     job.FailureType,
		FailureReason:   job.FailureReason,
		RetryCount:      job.RetryCount,
	}
}

// SystemicFailureDetectedEvent is published when pattern analysis finds a
// failure bucket above the alerting threshold
type SystemicFailureDetectedEvent struct {
	shared.BaseDomainEvent
	Platform    sync.PlatformCode `json:"platform"`
	FailureType sync.FailureType  `json:"failure_type"`
	Count       int64             `json:"count"`
	WindowHours int               `json:"window_hours"`
}

// NewSystemicFailureDetectedEvent creates the alert event for a failure pattern
func NewSystemicFailureDetectedEvent(tenantID uuid.UUID, summary PatternSummary, windowHours int) *SystemicFailureDetectedEvent {
	return &SystemicFailureDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSystemicFailureDetected, "DeadLetterJob", uuid.New(), tenantID),
		Platform:        summary.Platform,
		FailureType:     summary.FailureType,
		Count:           summary.Count,
		WindowHours:     windowHours,
	}
}
