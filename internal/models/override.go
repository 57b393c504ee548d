package models

import "time"

// DailyOverride is a staff-set flag for one date. A closed override always
// closes the date; an open one never reopens a weekend, holiday or year-end date.
type DailyOverride struct {
	Date       string    `db:"date" json:"date"`
	IsOpen     bool      `db:"is_open" json:"is_open"`
	DailyLimit *int      `db:"daily_limit" json:"daily_limit,omitempty"`
	Note       *string   `db:"note" json:"note,omitempty"`
	UpdatedBy  *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarDay is one cell of the month calendar view.
type CalendarDay struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Closed      bool   `json:"closed"`
	Reason      string `json:"reason,omitempty"`
	HolidayName string `json:"holiday_name,omitempty"`
	Note        string `json:"note,omitempty"`
}

// CalendarMonth is the month view served to guardians.
type CalendarMonth struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}
