package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending  ReservationStatus = "pending"
	StatusApproved ReservationStatus = "approved"
	StatusRejected ReservationStatus = "rejected"
	StatusCanceled ReservationStatus = "canceled"
)

// AllStatuses lists the legal reservation statuses in display order.
var AllStatuses = []ReservationStatus{StatusPending, StatusApproved, StatusRejected, StatusCanceled}

// Valid reports whether s is one of the four legal statuses.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether s ends the reservation lifecycle.
func (s ReservationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCanceled
}

// Period is the morning or afternoon capacity bucket of a day.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

// Reservation is one requested drop-off.
type Reservation struct {
	ID             string            `db:"id" json:"id"`
	GuardianName   string            `db:"guardian_name" json:"guardian_name"`
	Email          string            `db:"email" json:"email"`
	ChildName      *string           `db:"child_name" json:"child_name,omitempty"`
	ChildBirthdate *string           `db:"child_birthdate" json:"child_birthdate,omitempty"`
	ChildKey       *string           `db:"child_key" json:"-"`
	TargetDate     string            `db:"target_date" json:"target_date"`
	DropoffTime    string            `db:"dropoff_time" json:"dropoff_time"`
	Period         Period            `db:"period" json:"period"`
	Status         ReservationStatus `db:"status" json:"status"`
	Version        int               `db:"version" json:"version"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationFilter captures staff list criteria. Dates are inclusive YYYY-MM-DD bounds.
type ReservationFilter struct {
	DateFrom  string
	DateTo    string
	Statuses  []ReservationStatus
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}

// PersonSummary rolls reservations up per guardian for the people export.
type PersonSummary struct {
	GuardianName string `db:"guardian_name" json:"guardian_name"`
	Email        string `db:"email" json:"email"`
	ChildCount   int    `db:"child_count" json:"child_count"`
	Children     string `db:"children" json:"children"`
	FirstDate    string `db:"first_date" json:"first_date"`
	LastDate     string `db:"last_date" json:"last_date"`
	Total        int    `db:"total" json:"total"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
