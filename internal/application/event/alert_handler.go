package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/shared"
)

// AlertHandler surfaces operator alerts carried on domain events: critical
// dead-letter captures, systemic failure patterns and conflict escalations.
// Rendering is a structured log line per alert; paging integrations hang off
// the same log stream.
type AlertHandler struct {
	logger *zap.Logger
}

// NewAlertHandler creates the alert handler
func NewAlertHandler(logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertHandler{logger: logger}
}

// EventTypes returns the alert-bearing event types this handler subscribes to
func (h *AlertHandler) EventTypes() []string {
	return []string{
		dlq.EventTypeCriticalJobDeadLettered,
		dlq.EventTypeSystemicFailureDetected,
		conflict.EventTypeConflictEscalated,
	}
}

// Handle renders one alert. Handling never fails: a malformed event is
// logged as-is rather than bounced back to the bus for redelivery.
func (h *AlertHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	switch evt := e.(type) {
	case *dlq.CriticalJobDeadLetteredEvent:
		h.logger.Error("ALERT: critical job dead-lettered",
			zap.String("tenant_id", evt.TenantID().String()),
			zap.String("platform", evt.Platform.String()),
			zap.String("channel_id", evt.ChannelID),
			zap.String("operation", evt.Operation.String()),
			zap.String("failure_type", evt.FailureType.String()),
			zap.String("failure_reason", evt.FailureReason),
			zap.Int("retry_count", evt.RetryCount),
		)
	case *dlq.SystemicFailureDetectedEvent:
		h.logger.Error("ALERT: systemic failure pattern",
			zap.String("tenant_id", evt.TenantID().String()),
			zap.String("platform", evt.Platform.String()),
			zap.String("failure_type", evt.FailureType.String()),
			zap.Int64("count", evt.Count),
			zap.Int("window_hours", evt.WindowHours),
		)
	case *conflict.ConflictEscalatedEvent:
		h.logger.Error("ALERT: conflict escalated",
			zap.String("tenant_id", evt.TenantID().String()),
			zap.String("conflict_type", evt.ConflictType.String()),
			zap.String("severity", string(evt.Severity)),
			zap.String("entity_key", evt.EntityKey),
			zap.String("reason", evt.Reason),
		)
	default:
		h.logger.Warn("ALERT: unrecognized alert event",
			zap.String("event_id", e.EventID().String()),
			zap.String("event_type", e.EventType()),
		)
	}
	return nil
}

// Ensure AlertHandler implements EventHandler
var _ shared.EventHandler = (*AlertHandler)(nil)
