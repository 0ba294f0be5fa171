// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDLQBacklogProvider implements DLQBacklogProvider using GORM.
// It queries the dead_letter_jobs table directly for aggregated counts.
type GormDLQBacklogProvider struct {
	db *gorm.DB
}

// NewGormDLQBacklogProvider creates a new GormDLQBacklogProvider.
func NewGormDLQBacklogProvider(db *gorm.DB) *GormDLQBacklogProvider {
	return &GormDLQBacklogProvider{db: db}
}

// GetBacklogByStatus returns the number of dead-letter jobs per lifecycle
// status for a tenant.
func (p *GormDLQBacklogProvider) GetBacklogByStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("dead_letter_jobs").
		Select("status, COUNT(*) as count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.Status] = r.Count
	}

	return m, nil
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns all active tenant IDs.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("tenants").
		Select("id").
		Where("deleted_at IS NULL AND status = ?", "active").
		Find(&ids).Error

	return ids, err
}
