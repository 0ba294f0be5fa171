package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"github.com/channelsync/backend/internal/infrastructure/persistence/tenant"
)

// defaultConflictListLimit caps unbounded conflict listings
const defaultConflictListLimit = 100

// openStatuses enumerates non-terminal conflict statuses for filtering
var openStatuses = []conflict.Status{
	conflict.StatusDetected,
	conflict.StatusAnalyzing,
	conflict.StatusResolving,
}

// GormConflictRepository implements conflict.Repository using GORM
type GormConflictRepository struct {
	db *gorm.DB
}

// NewGormConflictRepository creates a new GormConflictRepository
func NewGormConflictRepository(db *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormConflictRepository) WithTx(tx *gorm.DB) *GormConflictRepository {
	return &GormConflictRepository{db: tx}
}

// Save inserts or updates a conflict
func (r *GormConflictRepository) Save(ctx context.Context, c *conflict.CrossChannelConflict) error {
	model := models.CrossChannelConflictModelFromDomain(c)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID returns a conflict by its identifier
func (r *GormConflictRepository) FindByID(ctx context.Context, id uuid.UUID) (*conflict.CrossChannelConflict, error) {
	var model models.CrossChannelConflictModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, conflict.ErrConflictNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFilter returns conflicts matching the filter, newest first
func (r *GormConflictRepository) FindByFilter(ctx context.Context, filter conflict.Filter) ([]*conflict.CrossChannelConflict, error) {
	query := r.db.WithContext(ctx).Model(&models.CrossChannelConflictModel{})

	if filter.TenantID != nil {
		query = query.Scopes(tenant.TenantScope(*filter.TenantID))
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EntityKey != "" {
		query = query.Where("entity_key = ?", filter.EntityKey)
	}
	if filter.OpenOnly {
		query = query.Where("status IN ?", openStatuses)
	}
	if filter.Since != nil {
		query = query.Where("detected_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("detected_at <= ?", *filter.Until)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultConflictListLimit
	}

	var conflictModels []models.CrossChannelConflictModel
	if err := query.Order("detected_at DESC").Limit(limit).Find(&conflictModels).Error; err != nil {
		return nil, err
	}

	conflicts := make([]*conflict.CrossChannelConflict, len(conflictModels))
	for i := range conflictModels {
		conflicts[i] = conflictModels[i].ToDomain()
	}
	return conflicts, nil
}

// FindPastDeadline returns open conflicts whose resolution deadline has
// passed, most overdue first
func (r *GormConflictRepository) FindPastDeadline(ctx context.Context, now time.Time, limit int) ([]*conflict.CrossChannelConflict, error) {
	if limit <= 0 {
		limit = defaultConflictListLimit
	}

	var conflictModels []models.CrossChannelConflictModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND resolution_deadline < ?", openStatuses, now).
		Order("resolution_deadline ASC").
		Limit(limit).
		Find(&conflictModels).Error; err != nil {
		return nil, err
	}

	conflicts := make([]*conflict.CrossChannelConflict, len(conflictModels))
	for i := range conflictModels {
		conflicts[i] = conflictModels[i].ToDomain()
	}
	return conflicts, nil
}

// CountByStatus returns conflict counts per status for a tenant
func (r *GormConflictRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[conflict.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CrossChannelConflictModel{}).
		Select("status, COUNT(*) as count").
		Scopes(tenant.TenantScope(tenantID)).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[conflict.Status]int64, len(rows))
	for _, row := range rows {
		counts[conflict.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// Ensure GormConflictRepository implements conflict.Repository
var _ conflict.Repository = (*GormConflictRepository)(nil)
