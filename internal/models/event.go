package models

import "time"

// Reservation event types published to downstream consumers.
const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
)

// ReservationEvent is the payload published when a reservation is created or changes status.
type ReservationEvent struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	ReservationID  string            `json:"reservation_id"`
	GuardianName   string            `json:"guardian_name"`
	Email          string            `json:"email"`
	TargetDate     string            `json:"target_date"`
	DropoffTime    string            `json:"dropoff_time"`
	Period         Period            `json:"period"`
	Status         ReservationStatus `json:"status"`
	PreviousStatus ReservationStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewReservationEvent builds an event of eventType for res.
func NewReservationEvent(eventType string, res *Reservation, previous ReservationStatus, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:           eventType,
		ReservationID:  res.ID,
		GuardianName:   res.GuardianName,
		Email:          res.Email,
		TargetDate:     res.TargetDate,
		DropoffTime:    res.DropoffTime,
		Period:         res.Period,
		Status:         res.Status,
		PreviousStatus: previous,
		OccurredAt:     at,
	}
}
