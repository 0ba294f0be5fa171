package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
)

func setupSyncMetricsTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.SyncMetricsModel{})
	require.NoError(t, err)

	return db
}

func newMetricsRecord(tenantID uuid.UUID, platform sync.PlatformCode, op sync.OperationType, success bool) *sync.SyncMetricsRecord {
	return &sync.SyncMetricsRecord{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Platform:      platform,
		ChannelID:     "ch-1",
		Operation:     op,
		JobID:         uuid.New(),
		Success:       success,
		RetryAttempts: 2,
		APICalls:      3,
		DataSize:      512,
		CircuitState:  "CLOSED",
		Duration:      1250 * time.Millisecond,
		RecordedAt:    time.Now(),
	}
}

func TestGormSyncMetricsRepository_SaveAndFind(t *testing.T) {
	db := setupSyncMetricsTestDB(t)
	repo := NewGormSyncMetricsRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	record := newMetricsRecord(tenantID, sync.PlatformCodeShopee, sync.OperationOrderSync, true)
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, record.ID, found[0].ID)
	assert.Equal(t, record.JobID, found[0].JobID)
	assert.Equal(t, 2, found[0].RetryAttempts)
	assert.Equal(t, 3, found[0].APICalls)
	assert.Equal(t, int64(512), found[0].DataSize)
	assert.Equal(t, 1250*time.Millisecond, found[0].Duration)
	assert.Equal(t, "CLOSED", found[0].CircuitState)
}

func TestGormSyncMetricsRepository_FindByFilter(t *testing.T) {
	db := setupSyncMetricsTestDB(t)
	repo := NewGormSyncMetricsRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	otherTenant := uuid.New()

	success := newMetricsRecord(tenantID, sync.PlatformCodeShopee, sync.OperationOrderSync, true)
	failure := newMetricsRecord(tenantID, sync.PlatformCodeShopee, sync.OperationInventoryPush, false)
	failure.FailureType = sync.FailureRateLimit
	lazada := newMetricsRecord(tenantID, sync.PlatformCodeLazada, sync.OperationOrderSync, true)
	foreign := newMetricsRecord(otherTenant, sync.PlatformCodeShopee, sync.OperationOrderSync, true)

	for _, r := range []*sync.SyncMetricsRecord{success, failure, lazada, foreign} {
		require.NoError(t, repo.Save(ctx, r))
	}

	t.Run("scopes to tenant", func(t *testing.T) {
		found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{})
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("filters by platform", func(t *testing.T) {
		p := sync.PlatformCodeLazada
		found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{Platform: &p})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, lazada.ID, found[0].ID)
	})

	t.Run("filters by operation", func(t *testing.T) {
		op := sync.OperationInventoryPush
		found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{Operation: &op})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, failure.ID, found[0].ID)
		assert.Equal(t, sync.FailureRateLimit, found[0].FailureType)
	})

	t.Run("filters by outcome", func(t *testing.T) {
		failed := false
		found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{Success: &failed})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, failure.ID, found[0].ID)
	})

	t.Run("respects limit", func(t *testing.T) {
		found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestGormSyncMetricsRepository_TimeWindow(t *testing.T) {
	db := setupSyncMetricsTestDB(t)
	repo := NewGormSyncMetricsRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	old := newMetricsRecord(tenantID, sync.PlatformCodeShopee, sync.OperationOrderSync, true)
	old.RecordedAt = time.Now().Add(-48 * time.Hour)
	recent := newMetricsRecord(tenantID, sync.PlatformCodeShopee, sync.OperationOrderSync, true)

	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, recent))

	since := time.Now().Add(-time.Hour)
	found, err := repo.FindByFilter(ctx, tenantID, sync.SyncMetricsFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, recent.ID, found[0].ID)
}
