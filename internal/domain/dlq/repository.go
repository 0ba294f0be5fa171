package dlq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Pattern Analysis
// ---------------------------------------------------------------------------

// PatternFilter selects dead-letter jobs for listing and pattern analysis,
// e.g. "all AuthFailure jobs for Shopee in the last hour"
type PatternFilter struct {
	// FailureType filters by classification (optional)
	FailureType *sync.FailureType
	// Platform filters by marketplace (optional)
	Platform *sync.PlatformCode
	// Operation filters by operation type (optional)
	Operation *sync.OperationType
	// Status filters by lifecycle status (optional)
	Status *Status
	// OnlyCritical restricts to critical jobs
	OnlyCritical bool
	// Since filters jobs dead-lettered from this time
	Since *time.Time
	// Until filters jobs dead-lettered until this time
	Until *time.Time
	// Limit caps the number of returned jobs (0 = repository default)
	Limit int
}

// PatternSummary aggregates failures sharing a (failure type, platform) pair.
// A large count in one bucket signals a systemic issue (expired credentials,
// platform-wide outage) rather than independent failures.
type PatternSummary struct {
	// FailureType is the shared classification
	FailureType sync.FailureType
	// Platform is the shared marketplace
	Platform sync.PlatformCode
	// Count is the number of jobs in the bucket
	Count int64
	// CriticalCount is how many of them are critical
	CriticalCount int64
	// FirstSeen is the earliest dead-letter time in the bucket
	FirstSeen time.Time
	// LastSeen is the latest dead-letter time in the bucket
	LastSeen time.Time
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Repository persists dead-letter jobs. The store is append-mostly and safe
// for concurrent writers; pattern-analysis reads tolerate eventually
// consistent views.
type Repository interface {
	// Save creates or updates a dead-letter job
	Save(ctx context.Context, job *DeadLetterJob) error

	// FindByID retrieves a job by its dead-letter ID
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*DeadLetterJob, error)

	// FindOpenByOriginalJobID retrieves the non-terminal (FAILED or
	// RECOVERING) entry for an original sync job, or ErrJobNotFound.
	// At most one open entry exists per original job.
	FindOpenByOriginalJobID(ctx context.Context, tenantID, originalJobID uuid.UUID) (*DeadLetterJob, error)

	// FindByFilter returns jobs matching the filter, newest first
	FindByFilter(ctx context.Context, tenantID uuid.UUID, filter PatternFilter) ([]DeadLetterJob, error)

	// Summarize aggregates jobs matching the filter into pattern buckets
	Summarize(ctx context.Context, tenantID uuid.UUID, filter PatternFilter) ([]PatternSummary, error)

	// CountByStatus returns the number of jobs per lifecycle status
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[Status]int64, error)
}
