package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Business Calendar Port
// ---------------------------------------------------------------------------

// HolidayInfo describes a public holiday returned by the calendar collaborator
type HolidayInfo struct {
	// Name is the holiday name
	Name string
	// Date is the holiday date (midnight, calendar timezone)
	Date time.Time
	// IsNational indicates a nationwide public holiday
	IsNational bool
}

// BusinessCalendar is the external-context port supplying Indonesian
// business-hours, holiday and Ramadan flags. It is consulted read-only to
// annotate sync warnings and recommendations; it never blocks a sync.
type BusinessCalendar interface {
	// IsBusinessHours reports whether the timestamp falls within the tenant's
	// business hours
	IsBusinessHours(ctx context.Context, tenantID uuid.UUID, at time.Time) (bool, error)

	// PublicHoliday returns holiday information for the timestamp's date, or
	// nil when the date is a working day
	PublicHoliday(ctx context.Context, tenantID uuid.UUID, at time.Time) (*HolidayInfo, error)

	// IsRamadanPeriod reports whether the timestamp falls within Ramadan
	IsRamadanPeriod(ctx context.Context, tenantID uuid.UUID, at time.Time) (bool, error)
}
