package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/persistence/models"
	"github.com/channelsync/backend/internal/infrastructure/persistence/tenant"
)

// defaultDLQListLimit caps unbounded dead-letter listings
const defaultDLQListLimit = 100

// GormDeadLetterRepository implements dlq.Repository using GORM
type GormDeadLetterRepository struct {
	db *gorm.DB
}

// NewGormDeadLetterRepository creates a new GormDeadLetterRepository
func NewGormDeadLetterRepository(db *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormDeadLetterRepository) WithTx(tx *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: tx}
}

// Save creates or updates a dead-letter job
func (r *GormDeadLetterRepository) Save(ctx context.Context, job *dlq.DeadLetterJob) error {
	model := models.DeadLetterJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID retrieves a job by its dead-letter ID, scoped to the tenant
func (r *GormDeadLetterRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*dlq.DeadLetterJob, error) {
	var model models.DeadLetterJobModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dlq.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpenByOriginalJobID retrieves the non-terminal entry for an original
// sync job. The manager keeps at most one open entry per original job, so a
// recurring failure updates the existing row instead of inserting a sibling.
func (r *GormDeadLetterRepository) FindOpenByOriginalJobID(ctx context.Context, tenantID, originalJobID uuid.UUID) (*dlq.DeadLetterJob, error) {
	var model models.DeadLetterJobModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("original_job_id = ?", originalJobID).
		Where("status IN ?", []dlq.Status{dlq.StatusFailed, dlq.StatusRecovering}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dlq.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFilter returns jobs matching the filter, newest first
func (r *GormDeadLetterRepository) FindByFilter(ctx context.Context, tenantID uuid.UUID, filter dlq.PatternFilter) ([]dlq.DeadLetterJob, error) {
	var jobModels []models.DeadLetterJobModel
	query := r.applyFilter(r.db.WithContext(ctx), tenantID, filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDLQListLimit
	}

	if err := query.Order("created_at DESC").Limit(limit).Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]dlq.DeadLetterJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

// Summarize aggregates jobs matching the filter into (failure type, platform)
// pattern buckets, largest bucket first
func (r *GormDeadLetterRepository) Summarize(ctx context.Context, tenantID uuid.UUID, filter dlq.PatternFilter) ([]dlq.PatternSummary, error) {
	var rows []struct {
		FailureType   string
		Platform      string
		Count         int64
		CriticalCount int64
		FirstSeen     string
		LastSeen      string
	}

	query := r.applyFilter(r.db.WithContext(ctx), tenantID, filter)
	if err := query.
		Model(&models.DeadLetterJobModel{}).
		Select("failure_type, platform, COUNT(*) as count, " +
			"SUM(CASE WHEN is_critical THEN 1 ELSE 0 END) as critical_count, " +
			"MIN(created_at) as first_seen, MAX(created_at) as last_seen").
		Group("failure_type, platform").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]dlq.PatternSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, dlq.PatternSummary{
			FailureType:   sync.FailureType(row.FailureType),
			Platform:      sync.PlatformCode(row.Platform),
			Count:         row.Count,
			CriticalCount: row.CriticalCount,
			FirstSeen:     parseDBTime(row.FirstSeen),
			LastSeen:      parseDBTime(row.LastSeen),
		})
	}
	return summaries, nil
}

// dbTimeLayouts covers the textual timestamp formats the supported drivers
// emit for aggregated time columns
var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// parseDBTime parses a driver-formatted timestamp string; aggregate functions
// lose the column's declared type, so MIN/MAX results arrive as text
func parseDBTime(s string) time.Time {
	for _, layout := range dbTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CountByStatus returns the number of jobs per lifecycle status
func (r *GormDeadLetterRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[dlq.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DeadLetterJobModel{}).
		Select("status, COUNT(*) as count").
		Scopes(tenant.TenantScope(tenantID)).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[dlq.Status]int64, len(rows))
	for _, row := range rows {
		counts[dlq.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// applyFilter translates a PatternFilter into WHERE clauses
func (r *GormDeadLetterRepository) applyFilter(db *gorm.DB, tenantID uuid.UUID, filter dlq.PatternFilter) *gorm.DB {
	query := db.Scopes(tenant.TenantScope(tenantID))

	if filter.FailureType != nil {
		query = query.Where("failure_type = ?", *filter.FailureType)
	}
	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Operation != nil {
		query = query.Where("operation = ?", *filter.Operation)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OnlyCritical {
		query = query.Where("is_critical = ?", true)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at <= ?", *filter.Until)
	}
	return query
}

// Ensure GormDeadLetterRepository implements dlq.Repository
var _ dlq.Repository = (*GormDeadLetterRepository)(nil)
