package models

// CapacityLimits is the admission configuration handed to the controller at construction.
type CapacityLimits struct {
	Daily                int
	Morning              int
	Afternoon            int
	AutoApproveThreshold int
	CountedStatuses      []ReservationStatus
	BlockDuplicateChild  bool
}

// PeriodLimit returns the sub-capacity for p.
func (l CapacityLimits) PeriodLimit(p Period) int {
	if p == PeriodMorning {
		return l.Morning
	}
	return l.Afternoon
}

// WithDaily returns a copy with the daily total replaced.
func (l CapacityLimits) WithDaily(daily int) CapacityLimits {
	l.Daily = daily
	return l
}

// PeriodCounts are reservation counts in counted statuses for one date.
type PeriodCounts struct {
	Total     int `json:"total" db:"total"`
	Morning   int `json:"morning" db:"morning"`
	Afternoon int `json:"afternoon" db:"afternoon"`
}

// Of returns the count for p.
func (c PeriodCounts) Of(p Period) int {
	if p == PeriodMorning {
		return c.Morning
	}
	return c.Afternoon
}

// RemainingCapacity is limits minus counts, floored at zero.
type RemainingCapacity struct {
	Daily     int `json:"daily"`
	Morning   int `json:"am"`
	Afternoon int `json:"pm"`
}

// Of returns the remaining slots for p.
func (r RemainingCapacity) Of(p Period) int {
	if p == PeriodMorning {
		return r.Morning
	}
	return r.Afternoon
}

// RejectionReason names the rule that refused an admission.
type RejectionReason string

const (
	ReasonClosed         RejectionReason = "closed"
	ReasonOutsideWindow  RejectionReason = "outside_window"
	ReasonDailyFull      RejectionReason = "daily_full"
	ReasonPeriodFull     RejectionReason = "period_full"
	ReasonDuplicateChild RejectionReason = "duplicate_child"
)

// Decision is the outcome of one admission evaluation. Exactly one of
// Admitted or Reason is meaningful.
type Decision struct {
	Admitted bool
	Reason   RejectionReason
	Period   Period
	Status   ReservationStatus
}

// Admit builds an admitting decision.
func Admit(period Period, status ReservationStatus) Decision {
	return Decision{Admitted: true, Period: period, Status: status}
}

// Reject builds a rejecting decision.
func Reject(reason RejectionReason) Decision {
	return Decision{Reason: reason}
}

// Availability is the read-only view of a date's admission state.
type Availability struct {
	Date                string            `json:"date"`
	Closed              bool              `json:"closed"`
	ClosedReason        string            `json:"closedReason,omitempty"`
	WithinBookingWindow bool              `json:"withinBookingWindow"`
	BookableDate        string            `json:"bookableDate"`
	CanReserve          bool              `json:"canReserve"`
	Remaining           RemainingCapacity `json:"remaining"`
}

// CapacitySnapshot is the staff view of one date's counts and limits.
type CapacitySnapshot struct {
	Date      string            `json:"date"`
	Limits    CapacityView      `json:"limits"`
	Counts    PeriodCounts      `json:"counts"`
	Approved  int               `json:"approved"`
	Remaining RemainingCapacity `json:"remaining"`
	Override  *DailyOverride    `json:"override,omitempty"`
}

// CapacityView exposes the effective limits for a date.
type CapacityView struct {
	Daily                int `json:"daily"`
	Morning              int `json:"morning"`
	Afternoon            int `json:"afternoon"`
	AutoApproveThreshold int `json:"auto_approve_threshold"`
}
