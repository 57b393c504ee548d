package calendar

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/jp"
	"go.uber.org/zap"
)

const (
	// rickar/cal models the post-2007 holiday law (Showa Day, Greenery Day on
	// May 4); earlier years are not supported. Equinox formulas end in 2099.
	minHolidayYear = 2007
	maxHolidayYear = 2099

	substituteHolidayName = "Substitute Holiday"
	citizensHolidayName   = "Citizens' Holiday"
)

// holidayCorrections patches dates the rickar/cal jp table gets wrong. An
// empty name means the date is not a holiday.
var holidayCorrections = map[string]string{
	// No Emperor's Birthday in 2019: Akihito abdicated on Apr 30.
	"2019-12-23": "",
	// Mountain Day moved for the Tokyo Olympics.
	"2020-08-10": "Mountain Day",
	"2020-08-11": "",
	"2021-08-08": "Mountain Day",
	"2021-08-11": "",
}

// holidayLookup answers whether a date is a statutory holiday, before
// substitute or citizens' rules are applied.
type holidayLookup func(date time.Time) (bool, string)

// JapanHolidays is a HolidayOracle for Japanese national holidays, including
// substitute holidays and citizens' holidays.
type JapanHolidays struct {
	lookup holidayLookup
	logger *zap.Logger
}

// NewJapanHolidays builds the oracle over the rickar/cal Japanese calendar.
func NewJapanHolidays(logger *zap.Logger) *JapanHolidays {
	if logger == nil {
		logger = zap.NewNop()
	}
	bc := cal.NewBusinessCalendar()
	bc.AddHoliday(jp.Holidays...)

	return &JapanHolidays{
		logger: logger,
		lookup: func(date time.Time) (bool, string) {
			if name, ok := holidayCorrections[date.Format(DateLayout)]; ok {
				return name != "", name
			}
			actual, _, h := bc.IsHoliday(date)
			if !actual || h == nil {
				return false, ""
			}
			return true, h.Name
		},
	}
}

// IsHoliday reports whether date is a national holiday.
func (j *JapanHolidays) IsHoliday(date time.Time) bool {
	return j.HolidayName(date) != ""
}

// HolidayName returns the holiday name, or "" for ordinary days, unsupported
// years and lookup failures.
func (j *JapanHolidays) HolidayName(date time.Time) (name string) {
	y, m, d := date.Date()
	if y < minHolidayYear || y > maxHolidayYear {
		return ""
	}
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	defer func() {
		if rec := recover(); rec != nil {
			name = ""
			if j.logger != nil {
				j.logger.Warn("holiday lookup failed, treating date as ordinary", zap.String("date", day.Format(DateLayout)), zap.Any("panic", rec))
			}
		}
	}()

	if ok, n := j.lookup(day); ok {
		return n
	}
	if j.isSubstitute(day) {
		return substituteHolidayName
	}
	if j.isCitizens(day) {
		return citizensHolidayName
	}
	return ""
}

// isSubstitute: the first non-holiday after a holiday that fell on Sunday.
func (j *JapanHolidays) isSubstitute(day time.Time) bool {
	for prev := day.AddDate(0, 0, -1); ; prev = prev.AddDate(0, 0, -1) {
		ok, _ := j.lookup(prev)
		if !ok {
			return false
		}
		if prev.Weekday() == time.Sunday {
			return true
		}
	}
}

// isCitizens: an ordinary weekday sandwiched between two holidays.
func (j *JapanHolidays) isCitizens(day time.Time) bool {
	if day.Weekday() == time.Sunday {
		return false
	}
	before, _ := j.lookup(day.AddDate(0, 0, -1))
	if !before {
		return false
	}
	after, _ := j.lookup(day.AddDate(0, 0, 1))
	return after
}
