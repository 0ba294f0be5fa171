package sync

import (
	"time"
)

// ---------------------------------------------------------------------------
// Sync Results
// ---------------------------------------------------------------------------

// SyncMetrics carries per-call observability counters. Adapters report
// APICalls; the orchestrator fills in retry and duration figures.
type SyncMetrics struct {
	// Duration is the total wall-clock time of the operation including retries
	Duration time.Duration `json:"duration"`
	// RetryAttempts is how many retries were performed (0 for first-try success)
	RetryAttempts int `json:"retry_attempts"`
	// APICalls is the number of outbound platform API calls made
	APICalls int `json:"api_calls"`
	// DataSize is the response payload size in bytes
	DataSize int64 `json:"data_size"`
}

// SyncError describes one failure encountered during a sync operation
type SyncError struct {
	// Type is the failure classification
	Type FailureType `json:"type"`
	// Code is the platform error code, when available
	Code string `json:"code,omitempty"`
	// Message is the human-readable description
	Message string `json:"message"`
	// Recoverable indicates whether the failure was retryable
	Recoverable bool `json:"recoverable"`
}

// SyncResult is the normalized outcome of a sync operation. It is immutable
// once produced: returned to the caller and fed to the conflict detector.
// Every result, success or failure, carries human-readable recommendations.
type SyncResult struct {
	// Success indicates the operation completed on the platform
	Success bool `json:"success"`
	// Platform identifies the marketplace the operation targeted
	Platform PlatformCode `json:"platform"`
	// OrderID is the internal order identifier (empty for non-order operations)
	OrderID string `json:"order_id,omitempty"`
	// PlatformOrderID is the identifier assigned by the platform
	PlatformOrderID string `json:"platform_order_id,omitempty"`
	// ChannelID is the sales channel the operation ran against
	ChannelID string `json:"channel_id"`
	// Errors lists the failures encountered (empty on clean success)
	Errors []SyncError `json:"errors,omitempty"`
	// Warnings lists non-fatal notes, including business-calendar annotations
	Warnings []string `json:"warnings,omitempty"`
	// Metrics carries the observability counters for this operation
	Metrics SyncMetrics `json:"metrics"`
	// Recommendations are human-readable next steps for operators
	Recommendations []string `json:"recommendations,omitempty"`
	// PlatformSpecific carries platform metadata (logistics, payment method)
	// without leaking it into the normalized fields other components use
	PlatformSpecific map[string]string `json:"platform_specific,omitempty"`
	// CompletedAt is when the result was produced
	CompletedAt time.Time `json:"completed_at"`
}

// NewSuccessResult creates a successful sync result
func NewSuccessResult(platform PlatformCode, channelID, orderID, platformOrderID string) *SyncResult {
	return &SyncResult{
		Success:          true,
		Platform:         platform,
		OrderID:          orderID,
		PlatformOrderID:  platformOrderID,
		ChannelID:        channelID,
		PlatformSpecific: make(map[string]string),
		CompletedAt:      time.Now(),
	}
}

// NewFailureResult creates a failed sync result from a classified error
func NewFailureResult(platform PlatformCode, channelID, orderID string, ce *ClassifiedError) *SyncResult {
	r := &SyncResult{
		Success:     false,
		Platform:    platform,
		OrderID:     orderID,
		ChannelID:   channelID,
		CompletedAt: time.Now(),
	}
	if ce != nil {
		r.Errors = append(r.Errors, SyncError{
			Type:        ce.Type,
			Code:        ce.Code,
			Message:     ce.Error(),
			Recoverable: ce.Recoverable,
		})
	}
	return r
}
