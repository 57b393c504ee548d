package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

func newAdmission(limits models.CapacityLimits, holidays holidaySet) *AdmissionService {
	return NewAdmissionService(testRules(holidays), limits, NewMetricsService(), nil)
}

func TestEvaluateWindowScenarios(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	ctx := context.Background()

	// Wednesday 2025-03-05.
	cases := []struct {
		name     string
		date     string
		hour     int
		minute   int
		admitted bool
		reason   models.RejectionReason
	}{
		{name: "same day before noon", date: "2025-03-05", hour: 11, minute: 59, admitted: true},
		{name: "same day at noon", date: "2025-03-05", hour: 12, reason: models.ReasonOutsideWindow},
		{name: "next day at noon", date: "2025-03-06", hour: 12, admitted: true},
		{name: "next day before noon", date: "2025-03-06", hour: 11, minute: 59, reason: models.ReasonOutsideWindow},
		{name: "two days ahead", date: "2025-03-07", hour: 13, reason: models.ReasonOutsideWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := svc.Evaluate(ctx, store, AdmissionRequest{
				Date:        tc.date,
				SubmittedAt: at(2025, 3, 5, tc.hour, tc.minute),
				DropoffTime: "09:00",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.admitted, decision.Admitted)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestEvaluateAcrossYearRollover(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()

	// 2027-01-05 is a Tuesday outside the year-end blackout; its window opens at noon on Jan 4.
	decision, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date:        "2027-01-05",
		SubmittedAt: at(2027, 1, 4, 12, 0),
		DropoffTime: "14:00",
	})
	require.NoError(t, err)
	assert.True(t, decision.Admitted)
	assert.Equal(t, models.PeriodAfternoon, decision.Period)

	// Jan 1 is closed; closure wins over an open window.
	decision, err = svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date:        "2027-01-01",
		SubmittedAt: at(2026, 12, 31, 12, 30),
		DropoffTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonClosed, decision.Reason)
}

func TestEvaluateClosedDates(t *testing.T) {
	svc := newAdmission(defaultLimits(), holidaySet{"2025-03-20": "Vernal Equinox Day"})
	store := newMemoryStore()
	store.overrides["2025-03-12"] = &models.DailyOverride{Date: "2025-03-12", IsOpen: false}
	store.overrides["2025-03-08"] = &models.DailyOverride{Date: "2025-03-08", IsOpen: true}

	cases := map[string]string{
		"saturday":         "2025-03-08",
		"holiday":          "2025-03-20",
		"override closed":  "2025-03-12",
		"year end weekday": "2025-12-30",
		"new year weekday": "2026-01-02",
	}
	for name, date := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := testRules(nil).ParseDate(date)
			require.NoError(t, err)
			decision, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
				Date:        date,
				SubmittedAt: d.Add(11 * time.Hour),
				DropoffTime: "09:00",
			})
			require.NoError(t, err)
			assert.False(t, decision.Admitted)
			assert.Equal(t, models.ReasonClosed, decision.Reason)
		})
	}
}

func TestEvaluateAutoApprovalThreshold(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	req := AdmissionRequest{Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 8, 0), DropoffTime: "10:00"}

	expected := []models.ReservationStatus{models.StatusApproved, models.StatusApproved, models.StatusPending, models.StatusPending}
	for i, want := range expected {
		decision, err := svc.Evaluate(context.Background(), store, req)
		require.NoError(t, err)
		require.True(t, decision.Admitted, "admission %d", i+1)
		assert.Equal(t, want, decision.Status, "admission %d", i+1)
		store.seed(req.Date, req.DropoffTime, decision.Status)
	}
}

func TestEvaluateDailyFull(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	for i := 0; i < 3; i++ {
		store.seed("2025-03-05", "09:00", models.StatusApproved)
		store.seed("2025-03-05", "15:00", models.StatusPending)
	}
	store.seed("2025-03-05", "15:00", models.StatusCanceled)
	store.seed("2025-03-05", "15:00", models.StatusRejected)

	for _, clock := range []string{"08:00", "13:00"} {
		decision, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
			Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: clock,
		})
		require.NoError(t, err)
		assert.Equal(t, models.ReasonDailyFull, decision.Reason)
	}
}

func TestEvaluatePeriodFull(t *testing.T) {
	limits := defaultLimits()
	limits.Daily = 10
	svc := newAdmission(limits, nil)
	store := newMemoryStore()
	for i := 0; i < 6; i++ {
		store.seed("2025-03-05", "09:30", models.StatusPending)
	}

	decision, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "11:59",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonPeriodFull, decision.Reason)

	decision, err = svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "12:00",
	})
	require.NoError(t, err)
	assert.True(t, decision.Admitted)
	assert.Equal(t, models.PeriodAfternoon, decision.Period)
}

func TestEvaluateOverrideDailyLimit(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	limit := 1
	store.overrides["2025-03-05"] = &models.DailyOverride{Date: "2025-03-05", IsOpen: true, DailyLimit: &limit}
	store.seed("2025-03-05", "09:00", models.StatusApproved)

	decision, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonDailyFull, decision.Reason)
}

func TestEvaluateDuplicateChild(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	existing := store.seed("2025-03-05", "09:00", models.StatusPending)
	key := "yui|2021-04-01"
	existing.ChildKey = &key

	req := AdmissionRequest{Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "10:00", ChildKey: key}
	decision, err := svc.Evaluate(context.Background(), store, req)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonDuplicateChild, decision.Reason)

	existing.Status = models.StatusCanceled
	decision, err = svc.Evaluate(context.Background(), store, req)
	require.NoError(t, err)
	assert.True(t, decision.Admitted)

	limits := defaultLimits()
	limits.BlockDuplicateChild = false
	existing.Status = models.StatusPending
	decision, err = newAdmission(limits, nil).Evaluate(context.Background(), store, req)
	require.NoError(t, err)
	assert.True(t, decision.Admitted)
}

func TestEvaluateStoreFailureFailsClosed(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	store.countErr = errors.New("connection refused")

	_, err := svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "10:00",
	})
	require.Error(t, err)

	store.countErr = nil
	store.overrideErr = errors.New("connection refused")
	_, err = svc.Evaluate(context.Background(), store, AdmissionRequest{
		Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "10:00",
	})
	require.Error(t, err)
}

func TestEvaluateRejectsMalformedInput(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	_, err := svc.Evaluate(context.Background(), newMemoryStore(), AdmissionRequest{Date: "2025/03/05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "10:00"})
	require.Error(t, err)
	_, err = svc.Evaluate(context.Background(), newMemoryStore(), AdmissionRequest{Date: "2025-03-05", SubmittedAt: at(2025, 3, 5, 9, 0), DropoffTime: "25:00"})
	require.Error(t, err)
}

func TestAvailability(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	for i := 0; i < 2; i++ {
		store.seed("2025-03-05", "09:00", models.StatusApproved)
	}
	store.seed("2025-03-05", "14:00", models.StatusPending)
	now := at(2025, 3, 5, 10, 0)

	first, err := svc.Availability(context.Background(), store, "2025-03-05", now, "")
	require.NoError(t, err)
	second, err := svc.Availability(context.Background(), store, "2025-03-05", now, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.False(t, first.Closed)
	assert.True(t, first.WithinBookingWindow)
	assert.True(t, first.CanReserve)
	assert.Equal(t, models.RemainingCapacity{Daily: 3, Morning: 4, Afternoon: 5}, first.Remaining)
	assert.Equal(t, "2025-03-05", first.BookableDate)

	closed, err := svc.Availability(context.Background(), store, "2025-03-08", now, "")
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	assert.Equal(t, "weekend", closed.ClosedReason)
	assert.False(t, closed.CanReserve)

	afterNoon, err := svc.Availability(context.Background(), store, "2025-03-05", at(2025, 3, 5, 12, 0), "")
	require.NoError(t, err)
	assert.False(t, afterNoon.WithinBookingWindow)
	assert.Equal(t, "2025-03-06", afterNoon.BookableDate)
}

func TestAvailabilityWithTimeChecksItsPeriod(t *testing.T) {
	limits := defaultLimits()
	limits.Daily = 10
	limits.Morning = 2
	svc := newAdmission(limits, nil)
	store := newMemoryStore()
	store.seed("2025-03-05", "09:00", models.StatusPending)
	store.seed("2025-03-05", "10:00", models.StatusPending)
	now := at(2025, 3, 5, 10, 0)

	morning, err := svc.Availability(context.Background(), store, "2025-03-05", now, "09:00")
	require.NoError(t, err)
	assert.False(t, morning.CanReserve)
	assert.Equal(t, 0, morning.Remaining.Morning)

	afternoon, err := svc.Availability(context.Background(), store, "2025-03-05", now, "13:00")
	require.NoError(t, err)
	assert.True(t, afternoon.CanReserve)
}

func TestAvailabilityDegradesOnOverrideFailure(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	store.overrideErr = errors.New("timeout")

	availability, err := svc.Availability(context.Background(), store, "2025-03-05", at(2025, 3, 5, 10, 0), "")
	require.NoError(t, err)
	assert.True(t, availability.CanReserve)

	store.countErr = errors.New("down")
	_, err = svc.Availability(context.Background(), store, "2025-03-05", at(2025, 3, 5, 10, 0), "")
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	svc := newAdmission(defaultLimits(), nil)
	store := newMemoryStore()
	store.seed("2025-03-05", "09:00", models.StatusApproved)
	store.seed("2025-03-05", "14:00", models.StatusPending)
	store.seed("2025-03-05", "14:00", models.StatusRejected)

	snapshot, err := svc.Snapshot(context.Background(), store, "2025-03-05")
	require.NoError(t, err)
	assert.Equal(t, models.PeriodCounts{Total: 2, Morning: 1, Afternoon: 1}, snapshot.Counts)
	assert.Equal(t, 1, snapshot.Approved)
	assert.Equal(t, 4, snapshot.Remaining.Daily)
	assert.Equal(t, 2, snapshot.Limits.AutoApproveThreshold)
}

func TestRemainingFloorsAtZero(t *testing.T) {
	remaining := Remaining(defaultLimits().WithDaily(2), models.PeriodCounts{Total: 5, Morning: 5})
	assert.Equal(t, models.RemainingCapacity{Daily: 0, Morning: 1, Afternoon: 6}, remaining)
}
