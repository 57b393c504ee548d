// Package calendar decides which facility dates are closed and when each
// date's booking window is open. All arithmetic happens in the facility's
// time zone, never the caller's.
package calendar

import (
	"fmt"
	"time"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for drop-off times.
	ClockLayout = "15:04"
	monthLayout = "2006-01"

	noonHour = 12
)

// ClosureReason explains why a date is closed. Empty means open.
type ClosureReason string

const (
	ClosureNone     ClosureReason = ""
	ClosureWeekend  ClosureReason = "weekend"
	ClosureHoliday  ClosureReason = "holiday"
	ClosureYearEnd  ClosureReason = "year_end"
	ClosureOverride ClosureReason = "override"
)

// HolidayOracle resolves public holidays for a local calendar date.
// Implementations answer false instead of failing.
type HolidayOracle interface {
	IsHoliday(date time.Time) bool
	HolidayName(date time.Time) string
}

type noHolidays struct{}

func (noHolidays) IsHoliday(time.Time) bool     { return false }
func (noHolidays) HolidayName(time.Time) string { return "" }

// Rules holds the facility zone and holiday source.
type Rules struct {
	loc      *time.Location
	holidays HolidayOracle
}

// NewRules builds calendar rules for loc. A nil oracle means no holidays.
func NewRules(loc *time.Location, holidays HolidayOracle) *Rules {
	if loc == nil {
		loc = time.UTC
	}
	if holidays == nil {
		holidays = noHolidays{}
	}
	return &Rules{loc: loc, holidays: holidays}
}

// Location returns the facility time zone.
func (r *Rules) Location() *time.Location {
	return r.loc
}

// ParseDate parses YYYY-MM-DD as local midnight in the facility zone.
func (r *Rules) ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, raw, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM into the first day of that month.
func (r *Rules) ParseMonth(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(monthLayout, raw, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	return t, nil
}

// FormatDate renders the local calendar date of t.
func (r *Rules) FormatDate(t time.Time) string {
	return t.In(r.loc).Format(DateLayout)
}

// DateOf returns local midnight of the calendar date containing instant.
func (r *Rules) DateOf(instant time.Time) time.Time {
	y, m, d := instant.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}

// AddDays shifts a local date by n calendar days.
func (r *Rules) AddDays(date time.Time, n int) time.Time {
	y, m, d := date.In(r.loc).Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, r.loc)
}

// MonthDays lists every date of the month containing first.
func (r *Rules) MonthDays(first time.Time) []time.Time {
	y, m, _ := first.In(r.loc).Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, r.loc)
	days := make([]time.Time, 0, 31)
	for d := start; d.Month() == m; d = r.AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// ClosureReason returns why date is closed, checking weekend, holiday,
// year-end and then a closing override. An open override is ignored.
func (r *Rules) ClosureReason(date time.Time, override *models.DailyOverride) ClosureReason {
	local := date.In(r.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return ClosureWeekend
	}
	if r.holidays.IsHoliday(local) {
		return ClosureHoliday
	}
	if IsYearEnd(local) {
		return ClosureYearEnd
	}
	if override != nil && !override.IsOpen {
		return ClosureOverride
	}
	return ClosureNone
}

// IsClosed reports whether date accepts no reservations.
func (r *Rules) IsClosed(date time.Time, override *models.DailyOverride) bool {
	return r.ClosureReason(date, override) != ClosureNone
}

// HolidayName returns the holiday name for date, if any.
func (r *Rules) HolidayName(date time.Time) string {
	return r.holidays.HolidayName(date.In(r.loc))
}

// IsYearEnd reports whether t falls in the Dec 29 - Jan 4 blackout, in t's own zone.
func IsYearEnd(t time.Time) bool {
	_, m, d := t.Date()
	return (m == time.December && d >= 29) || (m == time.January && d <= 4)
}

// BookingWindow returns [noon of D-1, noon of D) for target date D.
func (r *Rules) BookingWindow(date time.Time) (opensAt, closesAt time.Time) {
	y, m, d := date.In(r.loc).Date()
	opensAt = time.Date(y, m, d-1, noonHour, 0, 0, 0, r.loc)
	closesAt = time.Date(y, m, d, noonHour, 0, 0, 0, r.loc)
	return opensAt, closesAt
}

// WithinBookingWindow reports whether now falls in date's booking window.
func (r *Rules) WithinBookingWindow(date, now time.Time) bool {
	opensAt, closesAt := r.BookingWindow(date)
	return !now.Before(opensAt) && now.Before(closesAt)
}

// BookableDate returns the only date that can be booked at now: today before
// noon, tomorrow from noon on.
func (r *Rules) BookableDate(now time.Time) time.Time {
	local := now.In(r.loc)
	today := r.DateOf(local)
	if local.Hour() >= noonHour {
		return r.AddDays(today, 1)
	}
	return today
}

// ParseClock validates an HH:MM drop-off time and returns it zero-padded.
func ParseClock(raw string) (string, error) {
	t, err := time.Parse(ClockLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return t.Format(ClockLayout), nil
}

// PeriodOf maps a drop-off time to its capacity bucket: before noon is morning.
func PeriodOf(clock string) (models.Period, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	if t.Hour() < noonHour {
		return models.PeriodMorning, nil
	}
	return models.PeriodAfternoon, nil
}
