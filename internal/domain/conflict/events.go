package conflict

import (
	"github.com/channelsync/backend/internal/domain/shared"
)

const (
	// EventTypeConflictDetected is published whenever detection records a
	// new conflict
	EventTypeConflictDetected = "conflict.detected"
	// EventTypeConflictResolved is published when a conflict resolves,
	// automatically or by hand
	EventTypeConflictResolved = "conflict.resolved"
	// EventTypeConflictEscalated is published when a conflict escalates,
	// either explicitly or by outliving its resolution window
	EventTypeConflictEscalated = "conflict.escalated"
)

// ConflictDetectedEvent announces a newly recorded conflict
type ConflictDetectedEvent struct {
	shared.BaseDomainEvent
	ConflictType Type     `json:"conflict_type"`
	Severity     Severity `json:"severity"`
	EntityKey    string   `json:"entity_key"`
	Channels     []string `json:"channels"`
}

// NewConflictDetectedEvent creates a ConflictDetectedEvent
func NewConflictDetectedEvent(c *CrossChannelConflict) *ConflictDetectedEvent {
	return &ConflictDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConflictDetected, "CrossChannelConflict", c.ID, c.TenantID),
		ConflictType:    c.Type,
		Severity:        c.Severity,
		EntityKey:       c.EntityKey,
		Channels:        c.AffectedChannels,
	}
}

// ConflictResolvedEvent announces a resolved conflict
type ConflictResolvedEvent struct {
	shared.BaseDomainEvent
	ConflictType   Type   `json:"conflict_type"`
	EntityKey      string `json:"entity_key"`
	ResolutionNote string `json:"resolution_note"`
	AutoResolved   bool   `json:"auto_resolved"`
}

// NewConflictResolvedEvent creates a ConflictResolvedEvent
func NewConflictResolvedEvent(c *CrossChannelConflict, auto bool) *ConflictResolvedEvent {
	return &ConflictResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConflictResolved, "CrossChannelConflict", c.ID, c.TenantID),
		ConflictType:    c.Type,
		EntityKey:       c.EntityKey,
		ResolutionNote:  c.ResolutionNote,
		AutoResolved:    auto,
	}
}

// ConflictEscalatedEvent announces an escalated conflict; alerting
// collaborators subscribe to this
type ConflictEscalatedEvent struct {
	shared.BaseDomainEvent
	ConflictType Type     `json:"conflict_type"`
	Severity     Severity `json:"severity"`
	EntityKey    string   `json:"entity_key"`
	Reason       string   `json:"reason"`
}

// NewConflictEscalatedEvent creates a ConflictEscalatedEvent
func NewConflictEscalatedEvent(c *CrossChannelConflict, reason string) *ConflictEscalatedEvent {
	return &ConflictEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConflictEscalated, "CrossChannelConflict", c.ID, c.TenantID),
		ConflictType:    c.Type,
		Severity:        c.Severity,
		EntityKey:       c.EntityKey,
		Reason:          reason,
	}
}

var _ shared.DomainEvent = (*ConflictDetectedEvent)(nil)
var _ shared.DomainEvent = (*ConflictResolvedEvent)(nil)
var _ shared.DomainEvent = (*ConflictEscalatedEvent)(nil)
