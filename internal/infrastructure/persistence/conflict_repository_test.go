package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

func setupConflictTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CrossChannelConflictModel{})
	require.NoError(t, err)

	return db
}

// detectPriceConflict produces a real conflict through the detector so the
// persisted rows match what production emits
func detectPriceConflict(t *testing.T, tenantID uuid.UUID, entityKey string, prices ...int64) *conflict.CrossChannelConflict {
	t.Helper()

	detector := conflict.NewDetector(conflict.DefaultTolerances())
	snap := &conflict.Snapshot{TenantID: tenantID, EntityKey: entityKey}
	for i, p := range prices {
		snap.Prices = append(snap.Prices, conflict.ChannelPrice{
			ChannelID:  []string{"ch-shopee", "ch-lazada", "ch-tokopedia"}[i],
			Platform:   []sync.PlatformCode{sync.PlatformCodeShopee, sync.PlatformCodeLazada, sync.PlatformCodeTokopedia}[i],
			Price:      decimal.NewFromInt(p),
			ObservedAt: time.Now(),
		})
	}

	conflicts := detector.DetectConflicts(snap)
	require.Len(t, conflicts, 1)
	return conflicts[0]
}

func TestGormConflictRepository_SaveAndFindByID(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	c := detectPriceConflict(t, tenantID, "SKU-001", 150000, 145000)
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
	assert.Equal(t, tenantID, found.TenantID)
	assert.Equal(t, conflict.TypePriceConflict, found.Type)
	assert.Equal(t, "SKU-001", found.EntityKey)
	assert.ElementsMatch(t, []string{"ch-shopee", "ch-lazada"}, found.AffectedChannels)
	assert.ElementsMatch(t, []sync.PlatformCode{sync.PlatformCodeShopee, sync.PlatformCodeLazada}, found.AffectedPlatforms)
	assert.False(t, found.AutoResolvable)
	assert.WithinDuration(t, c.ResolutionDeadline, found.ResolutionDeadline, time.Second)
}

func TestGormConflictRepository_FindByID_NotFound(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, conflict.ErrConflictNotFound)
}

func TestGormConflictRepository_FindByFilter(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()

	// spread 3000 against the Rp 2000 tolerance: high
	high := detectPriceConflict(t, tenantA, "SKU-HIGH", 150000, 147000)
	// spread 5000 exceeds twice the tolerance: critical
	other := detectPriceConflict(t, tenantB, "SKU-OTHER", 150000, 145000)

	for _, c := range []*conflict.CrossChannelConflict{high, other} {
		require.NoError(t, repo.Save(ctx, c))
	}

	t.Run("filters by tenant", func(t *testing.T) {
		found, err := repo.FindByFilter(ctx, conflict.Filter{TenantID: &tenantA})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, high.ID, found[0].ID)
	})

	t.Run("filters by severity", func(t *testing.T) {
		sev := conflict.SeverityCritical
		found, err := repo.FindByFilter(ctx, conflict.Filter{Severity: &sev})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, other.ID, found[0].ID)
	})

	t.Run("filters by entity key", func(t *testing.T) {
		found, err := repo.FindByFilter(ctx, conflict.Filter{EntityKey: "SKU-HIGH"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, high.ID, found[0].ID)
	})

	t.Run("open only excludes terminal conflicts", func(t *testing.T) {
		escalated := detectPriceConflict(t, tenantA, "SKU-ESC", 150000, 140000)
		require.NoError(t, escalated.Escalate("deadline passed"))
		require.NoError(t, repo.Save(ctx, escalated))

		found, err := repo.FindByFilter(ctx, conflict.Filter{TenantID: &tenantA, OpenOnly: true})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, high.ID, found[0].ID)
	})
}

func TestGormConflictRepository_FindPastDeadline(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	overdue := detectPriceConflict(t, tenantID, "SKU-OVERDUE", 150000, 145000)
	overdue.ResolutionDeadline = time.Now().Add(-time.Hour)
	fresh := detectPriceConflict(t, tenantID, "SKU-FRESH", 150000, 145000)
	terminal := detectPriceConflict(t, tenantID, "SKU-DONE", 150000, 145000)
	terminal.ResolutionDeadline = time.Now().Add(-time.Hour)
	require.NoError(t, terminal.Escalate("already handled"))

	for _, c := range []*conflict.CrossChannelConflict{overdue, fresh, terminal} {
		require.NoError(t, repo.Save(ctx, c))
	}

	found, err := repo.FindPastDeadline(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, overdue.ID, found[0].ID)
}

func TestGormConflictRepository_CountByStatus(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	first := detectPriceConflict(t, tenantID, "SKU-1", 150000, 145000)
	second := detectPriceConflict(t, tenantID, "SKU-2", 150000, 145000)
	third := detectPriceConflict(t, tenantID, "SKU-3", 150000, 145000)
	require.NoError(t, third.Escalate("operator requested"))

	for _, c := range []*conflict.CrossChannelConflict{first, second, third} {
		require.NoError(t, repo.Save(ctx, c))
	}

	counts, err := repo.CountByStatus(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[conflict.StatusDetected])
	assert.Equal(t, int64(1), counts[conflict.StatusEscalated])
}

func TestGormConflictRepository_LifecycleRoundTrip(t *testing.T) {
	db := setupConflictTestDB(t)
	repo := NewGormConflictRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	c := detectPriceConflict(t, tenantID, "SKU-RT", 150000, 147000)
	require.NoError(t, repo.Save(ctx, c))

	require.NoError(t, c.BeginAnalysis())
	require.NoError(t, c.BeginResolution())
	require.NoError(t, c.Resolve("prices realigned to Rp 148.500"))
	require.NoError(t, repo.Save(ctx, c))

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, conflict.StatusResolved, found.Status)
	assert.Equal(t, "prices realigned to Rp 148.500", found.ResolutionNote)
	require.NotNil(t, found.ResolvedAt)
}
