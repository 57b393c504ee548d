package service

import (
	"context"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

type capacityCounter interface {
	CountByPeriod(ctx context.Context, date string, statuses []models.ReservationStatus) (models.PeriodCounts, error)
}

// CapacityLedger counts reservations that consume capacity. Counts are read
// from the store on every call and never cached.
type CapacityLedger struct {
	counted []models.ReservationStatus
}

// NewCapacityLedger builds a ledger over the given counted statuses.
func NewCapacityLedger(counted []models.ReservationStatus) *CapacityLedger {
	if len(counted) == 0 {
		counted = []models.ReservationStatus{models.StatusPending, models.StatusApproved}
	}
	return &CapacityLedger{counted: counted}
}

// Counts returns the total and per-period counts for date.
func (l *CapacityLedger) Counts(ctx context.Context, store capacityCounter, date string) (models.PeriodCounts, error) {
	return store.CountByPeriod(ctx, date, l.counted)
}

// Remaining is limits minus counts, floored at zero.
func Remaining(limits models.CapacityLimits, counts models.PeriodCounts) models.RemainingCapacity {
	return models.RemainingCapacity{
		Daily:     floorZero(limits.Daily - counts.Total),
		Morning:   floorZero(limits.Morning - counts.Morning),
		Afternoon: floorZero(limits.Afternoon - counts.Afternoon),
	}
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
