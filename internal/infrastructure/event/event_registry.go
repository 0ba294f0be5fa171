package event

import (
	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/dlq"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Conflict domain events
	serializer.Register(conflict.EventTypeConflictDetected, &conflict.ConflictDetectedEvent{})
	serializer.Register(conflict.EventTypeConflictResolved, &conflict.ConflictResolvedEvent{})
	serializer.Register(conflict.EventTypeConflictEscalated, &conflict.ConflictEscalatedEvent{})

	// Dead letter queue events
	serializer.Register(dlq.EventTypeCriticalJobDeadLettered, &dlq.CriticalJobDeadLetteredEvent{})
	serializer.Register(dlq.EventTypeSystemicFailureDetected, &dlq.SystemicFailureDetectedEvent{})
}
