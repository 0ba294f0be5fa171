package conflict

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/sync"
)

func TestRebalance(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("priority order wins over timestamp", func(t *testing.T) {
		plan, err := Rebalance("SKU-001@WH-JKT", idr(10), []ChannelReservation{
			{ChannelID: "shopee-main", Quantity: idr(7), RequestedAt: base, Priority: 2},
			{ChannelID: "tokopedia-main", Quantity: idr(6), RequestedAt: base.Add(time.Minute), Priority: 1},
		})
		require.NoError(t, err)
		require.Len(t, plan.Allocations, 2)

		// tokopedia has higher priority and keeps its full claim
		assert.Equal(t, "tokopedia-main", plan.Allocations[0].ChannelID)
		assert.True(t, plan.Allocations[0].Granted.Equal(idr(6)))
		assert.True(t, plan.Allocations[0].Backordered.IsZero())

		assert.Equal(t, "shopee-main", plan.Allocations[1].ChannelID)
		assert.True(t, plan.Allocations[1].Granted.Equal(idr(4)))
		assert.True(t, plan.Allocations[1].Backordered.Equal(idr(3)))
		assert.False(t, plan.FullyCovered)
	})

	t.Run("equal priority breaks ties on origin time", func(t *testing.T) {
		plan, err := Rebalance("SKU-001@WH-JKT", idr(5), []ChannelReservation{
			{ChannelID: "lazada-main", Quantity: idr(4), RequestedAt: base.Add(time.Minute), Priority: 1},
			{ChannelID: "shopee-main", Quantity: idr(4), RequestedAt: base, Priority: 1},
		})
		require.NoError(t, err)

		assert.Equal(t, "shopee-main", plan.Allocations[0].ChannelID)
		assert.True(t, plan.Allocations[0].Granted.Equal(idr(4)))
		assert.Equal(t, "lazada-main", plan.Allocations[1].ChannelID)
		assert.True(t, plan.Allocations[1].Granted.Equal(idr(1)))
		assert.True(t, plan.Allocations[1].Backordered.Equal(idr(3)))
	})

	t.Run("sufficient stock covers everyone", func(t *testing.T) {
		plan, err := Rebalance("SKU-001@WH-JKT", idr(20), []ChannelReservation{
			{ChannelID: "shopee-main", Quantity: idr(7), RequestedAt: base},
			{ChannelID: "tokopedia-main", Quantity: idr(6), RequestedAt: base},
		})
		require.NoError(t, err)
		assert.True(t, plan.FullyCovered)
		for _, a := range plan.Allocations {
			assert.True(t, a.Backordered.IsZero())
		}
	})

	t.Run("zero stock backorders every claim", func(t *testing.T) {
		plan, err := Rebalance("SKU-001@WH-JKT", idr(0), []ChannelReservation{
			{ChannelID: "shopee-main", Quantity: idr(2), RequestedAt: base},
			{ChannelID: "tokopedia-main", Quantity: idr(3), RequestedAt: base},
		})
		require.NoError(t, err)
		for _, a := range plan.Allocations {
			assert.True(t, a.Granted.IsZero())
			assert.True(t, a.Backordered.Equal(a.Requested))
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Rebalance("SKU", idr(-1), []ChannelReservation{{ChannelID: "a", Quantity: idr(1)}})
		assert.ErrorIs(t, err, ErrNegativeOnHand)

		_, err = Rebalance("SKU", idr(1), nil)
		assert.ErrorIs(t, err, ErrNoAffectedChannels)
	})
}

func TestResolver_ResolveInventory(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	resolver := NewResolver()

	reservations := []ChannelReservation{
		{ChannelID: "shopee-main", Platform: sync.PlatformCodeShopee, Quantity: idr(7), RequestedAt: base},
		{ChannelID: "tokopedia-main", Platform: sync.PlatformCodeTokopedia, Quantity: idr(6), RequestedAt: base.Add(time.Minute)},
	}
	onHand := idr(10)

	t.Run("resolves an oversell conflict with a plan", func(t *testing.T) {
		c := newConflict(uuid.New(), TypeInventoryMismatch, SeverityMedium, "SKU-001@WH-JKT",
			[]string{"shopee-main", "tokopedia-main"},
			[]sync.PlatformCode{sync.PlatformCodeShopee, sync.PlatformCodeTokopedia}, true, "oversold")

		plan, err := resolver.ResolveInventory(c, onHand, reservations)
		require.NoError(t, err)
		require.NotNil(t, plan)

		assert.Equal(t, StatusResolved, c.Status)
		require.NotNil(t, c.ResolvedAt)
		assert.Contains(t, c.ResolutionNote, "rebalanced 2 channel(s)")
	})

	t.Run("refuses non-inventory conflicts", func(t *testing.T) {
		c := newConflict(uuid.New(), TypePriceConflict, SeverityCritical, "SKU-001",
			[]string{"shopee-main", "tokopedia-main"},
			[]sync.PlatformCode{sync.PlatformCodeShopee}, false, "spread")

		_, err := resolver.ResolveInventory(c, onHand, reservations)
		assert.ErrorIs(t, err, ErrNotAutoResolvable)
		assert.Equal(t, StatusDetected, c.Status)
	})
}

func TestResolver_ResolveStatus(t *testing.T) {
	resolver := NewResolver()
	internal := StatusObservation{Status: sync.OrderStatusShipped, UpdatedAt: time.Now().Add(-10 * time.Minute)}

	t.Run("pushes newer internal state", func(t *testing.T) {
		c := newConflict(uuid.New(), TypeStatusConflict, SeverityMedium, "ORD-123",
			[]string{"shopee-main"}, []sync.PlatformCode{sync.PlatformCodeShopee}, true, "diverged")

		require.NoError(t, resolver.ResolveStatus(c, internal))
		assert.Equal(t, StatusResolved, c.Status)
		assert.Contains(t, c.ResolutionNote, "SHIPPED")
	})

	t.Run("refuses when platform state may be newer", func(t *testing.T) {
		c := newConflict(uuid.New(), TypeStatusConflict, SeverityHigh, "ORD-124",
			[]string{"shopee-main"}, []sync.PlatformCode{sync.PlatformCodeShopee}, false, "diverged")

		assert.ErrorIs(t, resolver.ResolveStatus(c, internal), ErrNotAutoResolvable)
	})
}

func TestConflict_Lifecycle(t *testing.T) {
	newTestConflict := func() *CrossChannelConflict {
		return newConflict(uuid.New(), TypePriceConflict, SeverityHigh, "SKU-001",
			[]string{"a", "b"}, []sync.PlatformCode{sync.PlatformCodeShopee}, false, "spread")
	}

	t.Run("full manual path", func(t *testing.T) {
		c := newTestConflict()
		require.NoError(t, c.BeginAnalysis())
		require.NoError(t, c.BeginResolution())
		require.NoError(t, c.Resolve("repriced by operator"))
		assert.Equal(t, StatusResolved, c.Status)
	})

	t.Run("cannot resolve from detected", func(t *testing.T) {
		c := newTestConflict()
		assert.ErrorIs(t, c.Resolve("nope"), ErrInvalidTransition)
	})

	t.Run("escalation from any open status", func(t *testing.T) {
		c := newTestConflict()
		require.NoError(t, c.BeginAnalysis())
		require.NoError(t, c.Escalate("deadline passed"))
		assert.Equal(t, StatusEscalated, c.Status)
		assert.ErrorIs(t, c.Escalate("again"), ErrAlreadyTerminal)
	})

	t.Run("deadline check", func(t *testing.T) {
		c := newTestConflict()
		assert.False(t, c.PastDeadline(c.DetectedAt.Add(time.Hour)))
		assert.True(t, c.PastDeadline(c.DetectedAt.Add(3*time.Hour)))

		require.NoError(t, c.Escalate("over"))
		// terminal conflicts are never past deadline
		assert.False(t, c.PastDeadline(c.DetectedAt.Add(24*time.Hour)))
	})
}
