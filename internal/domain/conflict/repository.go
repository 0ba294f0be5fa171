package conflict

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows conflict queries
type Filter struct {
	TenantID *uuid.UUID
	Type     *Type
	Severity *Severity
	Status   *Status
	// EntityKey restricts to one disputed entity
	EntityKey string
	// OpenOnly restricts to non-terminal conflicts
	OpenOnly bool
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

// Repository persists cross-channel conflicts
type Repository interface {
	// Save inserts or updates a conflict
	Save(ctx context.Context, conflict *CrossChannelConflict) error
	// FindByID returns a conflict by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*CrossChannelConflict, error)
	// FindByFilter returns conflicts matching the filter, newest first
	FindByFilter(ctx context.Context, filter Filter) ([]*CrossChannelConflict, error)
	// FindPastDeadline returns open conflicts whose resolution deadline has
	// passed; the escalation sweep feeds on this
	FindPastDeadline(ctx context.Context, now time.Time, limit int) ([]*CrossChannelConflict, error)
	// CountByStatus returns open/terminal counts per status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[Status]int64, error)
}
