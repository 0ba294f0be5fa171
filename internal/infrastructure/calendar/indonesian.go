// Package calendar provides the Indonesian business calendar consulted by the
// sync orchestrator. It answers business-hours, public-holiday and Ramadan
// queries from embedded tables; lookups are read-only and never fail a sync.
package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

// wibOffset is UTC+7 (Waktu Indonesia Barat), the timezone all calendar
// decisions are made in
const wibOffset = 7 * 60 * 60

// WIB is the Western Indonesian Time location
var WIB = time.FixedZone("WIB", wibOffset)

// BusinessHours bounds a tenant's working day in WIB
type BusinessHours struct {
	// StartHour is the first working hour (inclusive)
	StartHour int
	// EndHour is the last working hour (exclusive)
	EndHour int
	// IncludeSaturday extends business hours to Saturdays
	IncludeSaturday bool
}

// DefaultBusinessHours is the 09:00-18:00 WIB working window most Indonesian
// sellers operate in
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{StartHour: 9, EndHour: 18, IncludeSaturday: true}
}

// holiday is one fixed or movable public holiday entry
type holiday struct {
	month    time.Month
	day      int
	year     int // 0 for holidays fixed on the Gregorian calendar
	name     string
	national bool
}

// fixedHolidays are Gregorian-fixed Indonesian public holidays
var fixedHolidays = []holiday{
	{time.January, 1, 0, "Tahun Baru Masehi", true},
	{time.May, 1, 0, "Hari Buruh Internasional", true},
	{time.June, 1, 0, "Hari Lahir Pancasila", true},
	{time.August, 17, 0, "Hari Kemerdekaan Republik Indonesia", true},
	{time.December, 25, 0, "Hari Raya Natal", true},
}

// movableHolidays are year-specific religious holidays (Hijri and lunar
// calendar dates projected onto the Gregorian calendar)
var movableHolidays = []holiday{
	// 2025
	{time.March, 31, 2025, "Hari Raya Idul Fitri", true},
	{time.April, 1, 2025, "Hari Raya Idul Fitri (hari kedua)", true},
	{time.June, 6, 2025, "Hari Raya Idul Adha", true},
	{time.June, 27, 2025, "Tahun Baru Islam", true},
	{time.September, 5, 2025, "Maulid Nabi Muhammad", true},
	// 2026
	{time.March, 20, 2026, "Hari Raya Idul Fitri", true},
	{time.March, 21, 2026, "Hari Raya Idul Fitri (hari kedua)", true},
	{time.May, 27, 2026, "Hari Raya Idul Adha", true},
	{time.June, 16, 2026, "Tahun Baru Islam", true},
	{time.August, 25, 2026, "Maulid Nabi Muhammad", true},
	// 2027
	{time.March, 9, 2027, "Hari Raya Idul Fitri", true},
	{time.March, 10, 2027, "Hari Raya Idul Fitri (hari kedua)", true},
	{time.May, 16, 2027, "Hari Raya Idul Adha", true},
	{time.June, 6, 2027, "Tahun Baru Islam", true},
	{time.August, 14, 2027, "Maulid Nabi Muhammad", true},
}

// ramadanPeriod is one projected Ramadan date range, inclusive of both ends
type ramadanPeriod struct {
	start time.Time
	end   time.Time
}

// ramadanPeriods are projected Ramadan ranges in WIB
var ramadanPeriods = []ramadanPeriod{
	{time.Date(2025, time.March, 1, 0, 0, 0, 0, WIB), time.Date(2025, time.March, 30, 23, 59, 59, 0, WIB)},
	{time.Date(2026, time.February, 18, 0, 0, 0, 0, WIB), time.Date(2026, time.March, 19, 23, 59, 59, 0, WIB)},
	{time.Date(2027, time.February, 8, 0, 0, 0, 0, WIB), time.Date(2027, time.March, 8, 23, 59, 59, 0, WIB)},
}

// IndonesianCalendar implements the BusinessCalendar port from embedded
// holiday and Ramadan tables
type IndonesianCalendar struct {
	defaultHours BusinessHours
	// tenantHours overrides the working window per tenant
	tenantHours map[uuid.UUID]BusinessHours
}

// NewIndonesianCalendar creates a calendar with the default business hours
func NewIndonesianCalendar() *IndonesianCalendar {
	return &IndonesianCalendar{
		defaultHours: DefaultBusinessHours(),
		tenantHours:  make(map[uuid.UUID]BusinessHours),
	}
}

// SetDefaultHours overrides the default business hours
func (c *IndonesianCalendar) SetDefaultHours(hours BusinessHours) {
	c.defaultHours = hours
}

// SetTenantHours overrides the business hours for a tenant
func (c *IndonesianCalendar) SetTenantHours(tenantID uuid.UUID, hours BusinessHours) {
	c.tenantHours[tenantID] = hours
}

func (c *IndonesianCalendar) hoursFor(tenantID uuid.UUID) BusinessHours {
	if h, ok := c.tenantHours[tenantID]; ok {
		return h
	}
	return c.defaultHours
}

// IsBusinessHours reports whether the timestamp falls within the tenant's
// working window in WIB. Sundays and public holidays are never business hours.
func (c *IndonesianCalendar) IsBusinessHours(ctx context.Context, tenantID uuid.UUID, at time.Time) (bool, error) {
	local := at.In(WIB)
	hours := c.hoursFor(tenantID)

	switch local.Weekday() {
	case time.Sunday:
		return false, nil
	case time.Saturday:
		if !hours.IncludeSaturday {
			return false, nil
		}
	}

	if info, _ := c.PublicHoliday(ctx, tenantID, at); info != nil {
		return false, nil
	}

	h := local.Hour()
	return h >= hours.StartHour && h < hours.EndHour, nil
}

// PublicHoliday returns holiday information for the timestamp's WIB date, or
// nil for a working day
func (c *IndonesianCalendar) PublicHoliday(_ context.Context, _ uuid.UUID, at time.Time) (*sync.HolidayInfo, error) {
	local := at.In(WIB)
	y, m, d := local.Date()

	for _, h := range fixedHolidays {
		if h.month == m && h.day == d {
			return &sync.HolidayInfo{
				Name:       h.name,
				Date:       time.Date(y, m, d, 0, 0, 0, 0, WIB),
				IsNational: h.national,
			}, nil
		}
	}
	for _, h := range movableHolidays {
		if h.year == y && h.month == m && h.day == d {
			return &sync.HolidayInfo{
				Name:       h.name,
				Date:       time.Date(y, m, d, 0, 0, 0, 0, WIB),
				IsNational: h.national,
			}, nil
		}
	}
	return nil, nil
}

// IsRamadanPeriod reports whether the timestamp falls within a projected
// Ramadan range
func (c *IndonesianCalendar) IsRamadanPeriod(_ context.Context, _ uuid.UUID, at time.Time) (bool, error) {
	local := at.In(WIB)
	for _, p := range ramadanPeriods {
		if !local.Before(p.start) && !local.After(p.end) {
			return true, nil
		}
	}
	return false, nil
}

// Ensure IndonesianCalendar implements the BusinessCalendar port
var _ sync.BusinessCalendar = (*IndonesianCalendar)(nil)
