package conflict

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Auto-Resolution
// ---------------------------------------------------------------------------

// Allocation is one channel's share of stock after rebalancing
type Allocation struct {
	ChannelID string
	// Requested is the quantity the channel originally reserved
	Requested decimal.Decimal
	// Granted is the quantity the channel keeps after rebalancing
	Granted decimal.Decimal
	// Backordered is the shortfall the channel must absorb
	Backordered decimal.Decimal
}

// RebalancePlan is the proposed allocation set for an oversold entity
type RebalancePlan struct {
	EntityKey   string
	OnHand      decimal.Decimal
	Allocations []Allocation
	// FullyCovered is true when every reservation was granted in full, which
	// means the conflict cleared between detection and resolution
	FullyCovered bool
}

// Note renders the plan as a resolution note
func (p *RebalancePlan) Note() string {
	short := 0
	for _, a := range p.Allocations {
		if a.Backordered.IsPositive() {
			short++
		}
	}
	return fmt.Sprintf("rebalanced %d channel(s) against %s on hand, %d backordered",
		len(p.Allocations), p.OnHand.String(), short)
}

// Rebalance distributes available stock across reservations when their total
// exceeds on-hand. Channels are served in priority order (lower wins); equal
// priorities are served by earliest origin timestamp, so a claim is never
// displaced by one requested after it.
func Rebalance(entityKey string, onHand decimal.Decimal, reservations []ChannelReservation) (*RebalancePlan, error) {
	if onHand.IsNegative() {
		return nil, ErrNegativeOnHand
	}
	if len(reservations) == 0 {
		return nil, ErrNoAffectedChannels
	}

	ordered := make([]ChannelReservation, len(reservations))
	copy(ordered, reservations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].RequestedAt.Before(ordered[j].RequestedAt)
	})

	plan := &RebalancePlan{
		EntityKey:    entityKey,
		OnHand:       onHand,
		Allocations:  make([]Allocation, 0, len(ordered)),
		FullyCovered: true,
	}

	remaining := onHand
	for _, r := range ordered {
		granted := r.Quantity
		if granted.GreaterThan(remaining) {
			granted = remaining
		}
		if granted.IsNegative() {
			granted = decimal.Zero
		}
		backordered := r.Quantity.Sub(granted)
		if backordered.IsPositive() {
			plan.FullyCovered = false
		}
		plan.Allocations = append(plan.Allocations, Allocation{
			ChannelID:   r.ChannelID,
			Requested:   r.Quantity,
			Granted:     granted,
			Backordered: backordered,
		})
		remaining = remaining.Sub(granted)
	}

	return plan, nil
}

// Resolver applies automatic resolutions to conflicts that permit them.
// Conflicts it cannot act on stay open for the escalation sweep.
type Resolver struct{}

// NewResolver creates a Resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveInventory rebalances an oversold entity and resolves the conflict
// with the plan note. The caller is responsible for pushing the resulting
// allocations back to the channels.
func (r *Resolver) ResolveInventory(c *CrossChannelConflict, onHand decimal.Decimal, reservations []ChannelReservation) (*RebalancePlan, error) {
	if c.Type != TypeInventoryMismatch {
		return nil, ErrNotAutoResolvable
	}
	if !c.AutoResolvable {
		return nil, ErrNotAutoResolvable
	}

	plan, err := Rebalance(c.EntityKey, onHand, reservations)
	if err != nil {
		return nil, err
	}

	if c.Status == StatusDetected {
		if err := c.BeginResolution(); err != nil {
			return nil, err
		}
	}
	if err := c.Resolve(plan.Note()); err != nil {
		return nil, err
	}
	return plan, nil
}

// ResolveStatus resolves a status conflict by declaring the internal state
// authoritative. Only legal when detection proved the internal observation
// newer than every divergent channel report.
func (r *Resolver) ResolveStatus(c *CrossChannelConflict, internal StatusObservation) error {
	if c.Type != TypeStatusConflict || !c.AutoResolvable {
		return ErrNotAutoResolvable
	}
	if c.Status == StatusDetected {
		if err := c.BeginResolution(); err != nil {
			return err
		}
	}
	note := fmt.Sprintf("internal status %s (updated %s) pushed to divergent channels",
		internal.Status, internal.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	return c.Resolve(note)
}
