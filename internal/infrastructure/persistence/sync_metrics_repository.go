package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"github.com/channelsync/backend/internal/infrastructure/persistence/tenant"
)

// defaultMetricsListLimit caps unbounded metrics listings
const defaultMetricsListLimit = 500

// GormSyncMetricsRepository implements sync.SyncMetricsRepository using GORM
type GormSyncMetricsRepository struct {
	db *gorm.DB
}

// NewGormSyncMetricsRepository creates a new GormSyncMetricsRepository
func NewGormSyncMetricsRepository(db *gorm.DB) *GormSyncMetricsRepository {
	return &GormSyncMetricsRepository{db: db}
}

// Save writes a metrics record
func (r *GormSyncMetricsRepository) Save(ctx context.Context, record *sync.SyncMetricsRecord) error {
	model := models.SyncMetricsModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByFilter returns records matching the filter, newest first
func (r *GormSyncMetricsRepository) FindByFilter(ctx context.Context, tenantID uuid.UUID, filter sync.SyncMetricsFilter) ([]sync.SyncMetricsRecord, error) {
	query := r.db.WithContext(ctx).Scopes(tenant.TenantScope(tenantID))

	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Operation != nil {
		query = query.Where("operation = ?", *filter.Operation)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.Since != nil {
		query = query.Where("recorded_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("recorded_at <= ?", *filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMetricsListLimit
	}

	var metricModels []models.SyncMetricsModel
	if err := query.Order("recorded_at DESC").Limit(limit).Find(&metricModels).Error; err != nil {
		return nil, err
	}

	records := make([]sync.SyncMetricsRecord, len(metricModels))
	for i, model := range metricModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Ensure GormSyncMetricsRepository implements SyncMetricsRepository
var _ sync.SyncMetricsRepository = (*GormSyncMetricsRepository)(nil)
