package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Detector Inputs
// ---------------------------------------------------------------------------

// ChannelReservation is one channel's claim on stock for a product+location
// entity. RequestedAt is the origin timestamp of the claim; rebalancing
// tie-breaks on it, never on completion time.
type ChannelReservation struct {
	ChannelID   string
	Platform    sync.PlatformCode
	Quantity    decimal.Decimal
	RequestedAt time.Time
	// Priority ranks the channel for rebalancing; lower value wins first
	Priority int
}

// ChannelPrice is one channel's current listed price for a product
type ChannelPrice struct {
	ChannelID  string
	Platform   sync.PlatformCode
	Price      decimal.Decimal
	ObservedAt time.Time
}

// StatusObservation is the internal ledger's view of an order's status
type StatusObservation struct {
	Status    sync.OrderStatus
	UpdatedAt time.Time
}

// Snapshot bundles the latest per-channel state for one logical entity,
// assembled from SyncResults and status pulls. Any aspect may be absent.
type Snapshot struct {
	TenantID uuid.UUID
	// EntityKey identifies the entity under comparison
	EntityKey string

	// Inventory aspect
	OnHand       *decimal.Decimal
	Reservations []ChannelReservation

	// Price aspect
	Prices []ChannelPrice

	// Status aspect
	InternalStatus *StatusObservation
	StatusReports  []sync.OrderStatusReport
}

// ---------------------------------------------------------------------------
// Detector
// ---------------------------------------------------------------------------

// Tolerances configures how much cross-channel divergence is acceptable
type Tolerances struct {
	// PriceVarianceIDR is the acceptable max-min price spread in IDR
	PriceVarianceIDR decimal.Decimal
	// StatusGrace is how long a status divergence may persist before it is a
	// conflict; platforms propagate status changes asynchronously
	StatusGrace time.Duration
}

// DefaultTolerances returns the default detection tolerances
func DefaultTolerances() Tolerances {
	return Tolerances{
		PriceVarianceIDR: decimal.NewFromInt(2000),
		StatusGrace:      10 * time.Minute,
	}
}

// Detector compares per-channel states against tolerances and emits
// conflicts. It is stateless; persistence and resolution belong to the
// application layer.
type Detector struct {
	tolerances Tolerances
	now        func() time.Time
}

// NewDetector creates a detector with the given tolerances
func NewDetector(tolerances Tolerances) *Detector {
	if tolerances.PriceVarianceIDR.IsZero() {
		tolerances.PriceVarianceIDR = DefaultTolerances().PriceVarianceIDR
	}
	if tolerances.StatusGrace == 0 {
		tolerances.StatusGrace = DefaultTolerances().StatusGrace
	}
	return &Detector{tolerances: tolerances, now: time.Now}
}

// DetectConflicts runs all applicable comparisons for one entity snapshot and
// returns the detected conflicts. An empty slice means the channels agree
// within tolerance.
func (d *Detector) DetectConflicts(snap *Snapshot) []*CrossChannelConflict {
	var conflicts []*CrossChannelConflict

	if snap.OnHand != nil && len(snap.Reservations) >= 2 {
		if c := d.detectInventoryMismatch(snap); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	if len(snap.Prices) >= 2 {
		if c := d.detectPriceConflict(snap); c != nil {
			conflicts = append(conflicts, c)
		}
	}
	if snap.InternalStatus != nil && len(snap.StatusReports) > 0 {
		if c := d.detectStatusConflict(snap); c != nil {
			conflicts = append(conflicts, c)
		}
	}

	return conflicts
}

// detectInventoryMismatch flags oversell: the sum of reserved quantities
// across channels exceeding on-hand stock. Always auto-resolvable by
// rebalancing allocations.
func (d *Detector) detectInventoryMismatch(snap *Snapshot) *CrossChannelConflict {
	onHand := *snap.OnHand
	if onHand.IsNegative() {
		onHand = decimal.Zero
	}

	demand := decimal.Zero
	for _, r := range snap.Reservations {
		demand = demand.Add(r.Quantity)
	}
	if demand.LessThanOrEqual(onHand) {
		return nil
	}

	oversold := demand.Sub(onHand)
	severity := inventorySeverity(onHand, oversold)

	channels, platforms := channelsOf(snap.Reservations)
	detail := fmt.Sprintf("reserved %s across %d channels against %s on hand (oversold by %s)",
		demand.String(), len(snap.Reservations), onHand.String(), oversold.String())

	return newConflict(snap.TenantID, TypeInventoryMismatch, severity, snap.EntityKey,
		channels, platforms, true, detail)
}

// inventorySeverity grades oversell against available stock
func inventorySeverity(onHand, oversold decimal.Decimal) Severity {
	if onHand.IsZero() {
		return SeverityCritical
	}
	ratio := oversold.Div(onHand)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return SeverityCritical
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.5)):
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// detectPriceConflict flags a max-min spread beyond the IDR tolerance.
// Never auto-resolvable: automatic repricing carries business risk, so the
// pricing decision stays with a human.
func (d *Detector) detectPriceConflict(snap *Snapshot) *CrossChannelConflict {
	min, max := snap.Prices[0].Price, snap.Prices[0].Price
	for _, p := range snap.Prices[1:] {
		if p.Price.LessThan(min) {
			min = p.Price
		}
		if p.Price.GreaterThan(max) {
			max = p.Price
		}
	}

	spread := max.Sub(min)
	if spread.LessThanOrEqual(d.tolerances.PriceVarianceIDR) {
		return nil
	}

	severity := SeverityHigh
	if spread.GreaterThan(d.tolerances.PriceVarianceIDR.Mul(decimal.NewFromInt(2))) {
		severity = SeverityCritical
	}

	channels := make([]string, 0, len(snap.Prices))
	platforms := make([]sync.PlatformCode, 0, len(snap.Prices))
	for _, p := range snap.Prices {
		channels = append(channels, p.ChannelID)
		platforms = appendPlatform(platforms, p.Platform)
	}

	detail := fmt.Sprintf("price spread %s IDR (min %s, max %s) exceeds tolerance %s IDR",
		spread.String(), min.String(), max.String(), d.tolerances.PriceVarianceIDR.String())

	return newConflict(snap.TenantID, TypePriceConflict, severity, snap.EntityKey,
		channels, platforms, false, detail)
}

// detectStatusConflict flags channels whose reported order status disagrees
// with the internal status beyond the grace period. Auto-resolvable only when
// the internal state is provably newer than every channel report.
func (d *Detector) detectStatusConflict(snap *Snapshot) *CrossChannelConflict {
	internal := snap.InternalStatus
	now := d.now()

	var divergent []sync.OrderStatusReport
	internalNewest := true
	for _, r := range snap.StatusReports {
		if r.Status == internal.Status {
			continue
		}
		// still inside the propagation grace period
		if now.Sub(r.ReportedAt) < d.tolerances.StatusGrace && now.Sub(internal.UpdatedAt) < d.tolerances.StatusGrace {
			continue
		}
		divergent = append(divergent, r)
		if !r.ReportedAt.Before(internal.UpdatedAt) {
			internalNewest = false
		}
	}
	if len(divergent) == 0 {
		return nil
	}

	severity := SeverityMedium
	for _, r := range divergent {
		// a terminal platform state contradicting a live internal one (or the
		// reverse) risks shipping a cancelled order
		if r.Status.IsFinal() != internal.Status.IsFinal() {
			severity = SeverityHigh
			break
		}
	}

	channels := make([]string, 0, len(divergent))
	platforms := make([]sync.PlatformCode, 0, len(divergent))
	for _, r := range divergent {
		channels = append(channels, r.ChannelID)
		platforms = appendPlatform(platforms, r.Platform)
	}

	detail := fmt.Sprintf("internal status %s diverges from %d channel report(s) beyond %s grace",
		internal.Status, len(divergent), d.tolerances.StatusGrace)

	return newConflict(snap.TenantID, TypeStatusConflict, severity, snap.EntityKey,
		channels, platforms, internalNewest, detail)
}

// channelsOf collects the distinct channels and platforms of reservations,
// ordered by channel ID for stable output
func channelsOf(reservations []ChannelReservation) ([]string, []sync.PlatformCode) {
	channels := make([]string, 0, len(reservations))
	platforms := make([]sync.PlatformCode, 0, len(reservations))
	for _, r := range reservations {
		channels = append(channels, r.ChannelID)
		platforms = appendPlatform(platforms, r.Platform)
	}
	sort.Strings(channels)
	return channels, platforms
}

// appendPlatform appends a platform code if not already present
func appendPlatform(platforms []sync.PlatformCode, p sync.PlatformCode) []sync.PlatformCode {
	for _, existing := range platforms {
		if existing == p {
			return platforms
		}
	}
	return append(platforms, p)
}
