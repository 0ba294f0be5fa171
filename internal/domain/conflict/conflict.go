// Package conflict contains the cross-channel conflict bounded context:
// detection of inventory, price and status divergence between marketplaces,
// severity assignment, and the resolution/escalation lifecycle.
package conflict

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

var (
	ErrConflictNotFound       = errors.New("conflict: conflict not found")
	ErrInvalidTransition      = errors.New("conflict: invalid status transition")
	ErrNotAutoResolvable      = errors.New("conflict: conflict requires manual resolution")
	ErrAlreadyTerminal        = errors.New("conflict: conflict already resolved or escalated")
	ErrNoAffectedChannels     = errors.New("conflict: at least one affected channel is required")
	ErrInsufficientChannels   = errors.New("conflict: cross-channel detection needs two or more channels")
	ErrMissingInternalState   = errors.New("conflict: internal state observation is required")
	ErrNegativeOnHand         = errors.New("conflict: on-hand stock cannot be negative")
	ErrResolutionPastDeadline = errors.New("conflict: resolution deadline already passed")
)

// ---------------------------------------------------------------------------
// Type / Severity / Status
// ---------------------------------------------------------------------------

// Type classifies what the channels disagree about
type Type string

const (
	// TypeInventoryMismatch indicates reserved quantities across channels
	// exceed on-hand stock
	TypeInventoryMismatch Type = "INVENTORY_MISMATCH"
	// TypePriceConflict indicates the price spread across channels exceeds
	// the configured IDR tolerance
	TypePriceConflict Type = "PRICE_CONFLICT"
	// TypeStatusConflict indicates a channel's reported order status diverges
	// from the internally expected status beyond the grace period
	TypeStatusConflict Type = "STATUS_CONFLICT"
	// TypeDataInconsistency covers other normalized-field disagreements
	TypeDataInconsistency Type = "DATA_INCONSISTENCY"
)

// IsValid returns true if the conflict type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeInventoryMismatch, TypePriceConflict, TypeStatusConflict, TypeDataInconsistency:
		return true
	default:
		return false
	}
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Severity grades the business impact of a conflict
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ResolutionWindow returns how long a conflict of this severity may stay
// unresolved before it escalates
func (s Severity) ResolutionWindow() time.Duration {
	switch s {
	case SeverityCritical:
		return 30 * time.Minute
	case SeverityHigh:
		return 2 * time.Hour
	case SeverityMedium:
		return 8 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Status is the conflict lifecycle status
type Status string

const (
	StatusDetected  Status = "DETECTED"
	StatusAnalyzing Status = "ANALYZING"
	StatusResolving Status = "RESOLVING"
	StatusResolved  Status = "RESOLVED"
	StatusEscalated Status = "ESCALATED"
)

// IsTerminal returns true for statuses that end the lifecycle
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusEscalated
}

// ---------------------------------------------------------------------------
// CrossChannelConflict
// ---------------------------------------------------------------------------

// CrossChannelConflict records a detected disagreement between two or more
// channels (or a channel and the internal ledger) for the same entity. A
// conflict is never silently discarded: it either resolves or escalates.
type CrossChannelConflict struct {
	// ID is the unique conflict identifier
	ID uuid.UUID
	// TenantID is the tenant the conflict belongs to
	TenantID uuid.UUID
	// Type classifies the disagreement
	Type Type
	// Severity grades the business impact
	Severity Severity
	// EntityKey identifies the disputed entity: product+location for
	// inventory, product for price, order for status
	EntityKey string
	// AffectedChannels lists the channel IDs involved
	AffectedChannels []string
	// AffectedPlatforms lists the marketplaces involved
	AffectedPlatforms []sync.PlatformCode
	// DetectedAt is when detection ran
	DetectedAt time.Time
	// Status is the lifecycle status
	Status Status
	// AutoResolvable indicates the resolution step may act without a human
	AutoResolvable bool
	// ResolutionDeadline is when an unresolved conflict must escalate
	ResolutionDeadline time.Time
	// Detail is the human-readable description of the divergence
	Detail string
	// ResolutionNote records what the resolution step did or proposed
	ResolutionNote string
	// ResolvedAt is when the conflict reached a terminal status
	ResolvedAt *time.Time
	// UpdatedAt is when the conflict last changed
	UpdatedAt time.Time
}

// newConflict builds a conflict with its deadline derived from severity
func newConflict(tenantID uuid.UUID, t Type, severity Severity, entityKey string, channels []string, platforms []sync.PlatformCode, autoResolvable bool, detail string) *CrossChannelConflict {
	now := time.Now()
	return &CrossChannelConflict{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Type:               t,
		Severity:           severity,
		EntityKey:          entityKey,
		AffectedChannels:   channels,
		AffectedPlatforms:  platforms,
		DetectedAt:         now,
		Status:             StatusDetected,
		AutoResolvable:     autoResolvable,
		ResolutionDeadline: now.Add(severity.ResolutionWindow()),
		Detail:             detail,
		UpdatedAt:          now,
	}
}

// ---------------------------------------------------------------------------
// Status machine
// ---------------------------------------------------------------------------

// transitions lists the allowed lifecycle moves. Escalation is handled
// separately because it is allowed from every non-terminal status.
var transitions = map[Status][]Status{
	StatusDetected:  {StatusAnalyzing, StatusResolving},
	StatusAnalyzing: {StatusResolving},
	StatusResolving: {StatusResolved},
}

func (c *CrossChannelConflict) transition(to Status) error {
	if c.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	for _, allowed := range transitions[c.Status] {
		if allowed == to {
			c.Status = to
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrInvalidTransition
}

// BeginAnalysis moves a detected conflict into analysis
func (c *CrossChannelConflict) BeginAnalysis() error {
	return c.transition(StatusAnalyzing)
}

// BeginResolution moves the conflict into the resolving state
func (c *CrossChannelConflict) BeginResolution() error {
	return c.transition(StatusResolving)
}

// Resolve marks the conflict resolved with a note describing the outcome
func (c *CrossChannelConflict) Resolve(note string) error {
	if err := c.transition(StatusResolved); err != nil {
		return err
	}
	now := time.Now()
	c.ResolutionNote = note
	c.ResolvedAt = &now
	return nil
}

// Escalate marks the conflict escalated. Allowed from any non-terminal
// status; conflicts past their deadline must take this path.
func (c *CrossChannelConflict) Escalate(reason string) error {
	if c.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}
	now := time.Now()
	c.Status = StatusEscalated
	c.ResolutionNote = reason
	c.ResolvedAt = &now
	c.UpdatedAt = now
	return nil
}

// PastDeadline reports whether the conflict has outlived its resolution window
func (c *CrossChannelConflict) PastDeadline(now time.Time) bool {
	return !c.Status.IsTerminal() && now.After(c.ResolutionDeadline)
}
