package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Dead Letter Jobs
// ---------------------------------------------------------------------------

// DeadLetterJobModel is the persistence model for the DeadLetterJob domain entity.
type DeadLetterJobModel struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID          `gorm:"type:uuid;not null;index:idx_dlq_tenant,priority:1"`
	OriginalQueue   string             `gorm:"type:varchar(100);not null"`
	OriginalJobID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	OriginalPayload []byte             `gorm:"type:bytea;not null"`
	Platform        sync.PlatformCode  `gorm:"type:varchar(20);not null;index:idx_dlq_pattern,priority:2"`
	ChannelID       string             `gorm:"type:varchar(100);not null"`
	Operation       sync.OperationType `gorm:"type:varchar(30);not null"`
	FailureType     sync.FailureType   `gorm:"type:varchar(30);not null;index:idx_dlq_pattern,priority:1"`
	FailureReason   string             `gorm:"type:text;not null"`
	IdempotencyKey  string             `gorm:"type:varchar(255)"`
	RetryCount      int                `gorm:"not null;default:0"`
	MaxRetries      int                `gorm:"not null;default:0"`
	Status          dlq.Status         `gorm:"type:varchar(20);not null;index"`
	Priority        dlq.Priority       `gorm:"type:varchar(10);not null"`
	IsCritical      bool               `gorm:"not null;default:false;index"`
	ArchiveKey      string             `gorm:"type:varchar(512)"`
	OriginatedAt    time.Time          `gorm:"not null"`
	CreatedAt       time.Time          `gorm:"not null;index"`
	UpdatedAt       time.Time          `gorm:"not null"`
	RecoveredAt     *time.Time
}

// TableName returns the table name for GORM
func (DeadLetterJobModel) TableName() string {
	return "dead_letter_jobs"
}

// ToDomain converts the persistence model to a domain DeadLetterJob entity.
func (m *DeadLetterJobModel) ToDomain() *dlq.DeadLetterJob {
	return &dlq.DeadLetterJob{
		ID:              m.ID,
		TenantID:        m.TenantID,
		OriginalQueue:   m.OriginalQueue,
		OriginalJobID:   m.OriginalJobID,
		OriginalPayload: m.OriginalPayload,
		Platform:        m.Platform,
		ChannelID:       m.ChannelID,
		Operation:       m.Operation,
		FailureType:     m.FailureType,
		FailureReason:   m.FailureReason,
		IdempotencyKey:  m.IdempotencyKey,
		RetryCount:      m.RetryCount,
		MaxRetries:      m.MaxRetries,
		Status:          m.Status,
		Priority:        m.Priority,
		IsCritical:      m.IsCritical,
		ArchiveKey:      m.ArchiveKey,
		OriginatedAt:    m.OriginatedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		RecoveredAt:     m.RecoveredAt,
	}
}

// FromDomain populates the persistence model from a domain DeadLetterJob entity.
func (m *DeadLetterJobModel) FromDomain(j *dlq.DeadLetterJob) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.OriginalQueue = j.OriginalQueue
	m.OriginalJobID = j.OriginalJobID
	m.OriginalPayload = j.OriginalPayload
	m.Platform = j.Platform
	m.ChannelID = j.ChannelID
	m.Operation = j.Operation
	m.FailureType = j.FailureType
	m.FailureReason = j.FailureReason
	m.IdempotencyKey = j.IdempotencyKey
	m.RetryCount = j.RetryCount
	m.MaxRetries = j.MaxRetries
	m.Status = j.Status
	m.Priority = j.Priority
	m.IsCritical = j.IsCritical
	m.ArchiveKey = j.ArchiveKey
	m.OriginatedAt = j.OriginatedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
	m.RecoveredAt = j.RecoveredAt
}

// DeadLetterJobModelFromDomain creates a new persistence model from a domain DeadLetterJob entity.
func DeadLetterJobModelFromDomain(j *dlq.DeadLetterJob) *DeadLetterJobModel {
	m := &DeadLetterJobModel{}
	m.FromDomain(j)
	return m
}

// ---------------------------------------------------------------------------
// Cross Channel Conflicts
// ---------------------------------------------------------------------------

// CrossChannelConflictModel is the persistence model for the CrossChannelConflict domain entity.
type CrossChannelConflictModel struct {
	ID                    uuid.UUID         `gorm:"type:uuid;primary_key"`
	TenantID              uuid.UUID         `gorm:"type:uuid;not null;index:idx_conflict_tenant,priority:1"`
	Type                  conflict.Type     `gorm:"type:varchar(30);not null;index"`
	Severity              conflict.Severity `gorm:"type:varchar(10);not null"`
	EntityKey             string            `gorm:"type:varchar(255);not null;index"`
	AffectedChannelsJSON  string            `gorm:"type:jsonb;column:affected_channels"`
	AffectedPlatformsJSON string            `gorm:"type:jsonb;column:affected_platforms"`
	DetectedAt            time.Time         `gorm:"not null;index"`
	Status                conflict.Status   `gorm:"type:varchar(20);not null;index"`
	AutoResolvable        bool              `gorm:"not null;default:false"`
	ResolutionDeadline    time.Time         `gorm:"not null;index"`
	Detail                string            `gorm:"type:text"`
	ResolutionNote        string            `gorm:"type:text"`
	ResolvedAt            *time.Time
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CrossChannelConflictModel) TableName() string {
	return "cross_channel_conflicts"
}

// ToDomain converts the persistence model to a domain CrossChannelConflict entity.
func (m *CrossChannelConflictModel) ToDomain() *conflict.CrossChannelConflict {
	c := &conflict.CrossChannelConflict{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		Type:               m.Type,
		Severity:           m.Severity,
		EntityKey:          m.EntityKey,
		AffectedChannels:   make([]string, 0),
		AffectedPlatforms:  make([]sync.PlatformCode, 0),
		DetectedAt:         m.DetectedAt,
		Status:             m.Status,
		AutoResolvable:     m.AutoResolvable,
		ResolutionDeadline: m.ResolutionDeadline,
		Detail:             m.Detail,
		ResolutionNote:     m.ResolutionNote,
		ResolvedAt:         m.ResolvedAt,
		UpdatedAt:          m.UpdatedAt,
	}

	if m.AffectedChannelsJSON != "" {
		var channels []string
		if err := json.Unmarshal([]byte(m.AffectedChannelsJSON), &channels); err == nil {
			c.AffectedChannels = channels
		}
	}
	if m.AffectedPlatformsJSON != "" {
		var platforms []sync.PlatformCode
		if err := json.Unmarshal([]byte(m.AffectedPlatformsJSON), &platforms); err == nil {
			c.AffectedPlatforms = platforms
		}
	}

	return c
}

// FromDomain populates the persistence model from a domain CrossChannelConflict entity.
func (m *CrossChannelConflictModel) FromDomain(c *conflict.CrossChannelConflict) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.Type = c.Type
	m.Severity = c.Severity
	m.EntityKey = c.EntityKey
	m.DetectedAt = c.DetectedAt
	m.Status = c.Status
	m.AutoResolvable = c.AutoResolvable
	m.ResolutionDeadline = c.ResolutionDeadline
	m.Detail = c.Detail
	m.ResolutionNote = c.ResolutionNote
	m.ResolvedAt = c.ResolvedAt
	m.UpdatedAt = c.UpdatedAt

	if len(c.AffectedChannels) > 0 {
		if jsonBytes, err := json.Marshal(c.AffectedChannels); err == nil {
			m.AffectedChannelsJSON = string(jsonBytes)
		}
	} else {
		m.AffectedChannelsJSON = "[]"
	}
	if len(c.AffectedPlatforms) > 0 {
		if jsonBytes, err := json.Marshal(c.AffectedPlatforms); err == nil {
			m.AffectedPlatformsJSON = string(jsonBytes)
		}
	} else {
		m.AffectedPlatformsJSON = "[]"
	}
}

// CrossChannelConflictModelFromDomain creates a new persistence model from a domain entity.
func CrossChannelConflictModelFromDomain(c *conflict.CrossChannelConflict) *CrossChannelConflictModel {
	m := &CrossChannelConflictModel{}
	m.FromDomain(c)
	return m
}

// ---------------------------------------------------------------------------
// Sync Metrics
// ---------------------------------------------------------------------------

// SyncMetricsModel is the persistence model for per-operation sync metrics.
// One row is written for every orchestrated operation regardless of outcome.
type SyncMetricsModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID          `gorm:"type:uuid;not null;index:idx_sync_metrics_tenant,priority:1"`
	Platform      sync.PlatformCode  `gorm:"type:varchar(20);not null;index"`
	ChannelID     string             `gorm:"type:varchar(100);not null"`
	Operation     sync.OperationType `gorm:"type:varchar(30);not null;index"`
	JobID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	Success       bool               `gorm:"not null"`
	FailureType   sync.FailureType   `gorm:"type:varchar(30)"`
	RetryAttempts int                `gorm:"not null;default:0"`
	APICalls      int                `gorm:"not null;default:0"`
	DataSize      int64              `gorm:"not null;default:0"`
	CircuitState  string             `gorm:"type:varchar(20)"`
	DurationMs    int64              `gorm:"not null;default:0"`
	RecordedAt    time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncMetricsModel) TableName() string {
	return "sync_metrics"
}

// ToDomain converts the persistence model to a domain SyncMetricsRecord.
func (m *SyncMetricsModel) ToDomain() *sync.SyncMetricsRecord {
	return &sync.SyncMetricsRecord{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Platform:      m.Platform,
		ChannelID:     m.ChannelID,
		Operation:     m.Operation,
		JobID:         m.JobID,
		Success:       m.Success,
		FailureType:   m.FailureType,
		RetryAttempts: m.RetryAttempts,
		APICalls:      m.APICalls,
		DataSize:      m.DataSize,
		CircuitState:  m.CircuitState,
		Duration:      time.Duration(m.DurationMs) * time.Millisecond,
		RecordedAt:    m.RecordedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncMetricsRecord.
func (m *SyncMetricsModel) FromDomain(r *sync.SyncMetricsRecord) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.Platform = r.Platform
	m.ChannelID = r.ChannelID
	m.Operation = r.Operation
	m.JobID = r.JobID
	m.Success = r.Success
	m.FailureType = r.FailureType
	m.RetryAttempts = r.RetryAttempts
	m.APICalls = r.APICalls
	m.DataSize = r.DataSize
	m.CircuitState = r.CircuitState
	m.DurationMs = r.Duration.Milliseconds()
	m.RecordedAt = r.RecordedAt
}

// SyncMetricsModelFromDomain creates a new persistence model from a domain record.
func SyncMetricsModelFromDomain(r *sync.SyncMetricsRecord) *SyncMetricsModel {
	m := &SyncMetricsModel{}
	m.FromDomain(r)
	return m
}
