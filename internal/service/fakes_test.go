package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	"github.com/noah-isme/childcare-reservation-api/internal/repository"
)

var jst = time.FixedZone("JST", 9*60*60)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, jst)
}

func defaultLimits() models.CapacityLimits {
	return models.CapacityLimits{
		Daily:                6,
		Morning:              6,
		Afternoon:            6,
		AutoApproveThreshold: 2,
		CountedStatuses:      []models.ReservationStatus{models.StatusPending, models.StatusApproved},
		BlockDuplicateChild:  true,
	}
}

type holidaySet map[string]string

func (h holidaySet) IsHoliday(date time.Time) bool {
	_, ok := h[date.Format(calendar.DateLayout)]
	return ok
}

func (h holidaySet) HolidayName(date time.Time) string {
	return h[date.Format(calendar.DateLayout)]
}

func testRules(holidays holidaySet) *calendar.Rules {
	if holidays == nil {
		return calendar.NewRules(jst, nil)
	}
	return calendar.NewRules(jst, holidays)
}

// memoryStore is an in-memory reservation store. WithinDateLock serializes
// callers per store, matching the advisory lock semantics.
type memoryStore struct {
	mu           sync.Mutex
	lock         sync.Mutex
	reservations []*models.Reservation
	overrides    map[string]*models.DailyOverride
	audits       []*models.AuditLog

	overrideErr error
	countErr    error
	findErr     error
	finds       int
	lockDelay   time.Duration
	uniqueIndex bool
	// missActive makes HasActiveChild miss, as when a concurrent insert lands after the check.
	missActive bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{overrides: map[string]*models.DailyOverride{}, uniqueIndex: true}
}

func (m *memoryStore) seed(date, clock string, status models.ReservationStatus) *models.Reservation {
	period, _ := calendar.PeriodOf(clock)
	res := &models.Reservation{
		ID:           uuid.NewString(),
		GuardianName: "Seed",
		Email:        "seed@example.com",
		TargetDate:   date,
		DropoffTime:  clock,
		Period:       period,
		Status:       status,
		Version:      1,
	}
	m.mu.Lock()
	m.reservations = append(m.reservations, res)
	m.mu.Unlock()
	return res
}

func (m *memoryStore) WithinDateLock(ctx context.Context, _ string, fn func(tx repository.ReservationTx) error) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.lockDelay > 0 {
		select {
		case <-time.After(m.lockDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn(m)
}

func (m *memoryStore) CountByPeriod(_ context.Context, date string, statuses []models.ReservationStatus) (models.PeriodCounts, error) {
	if m.countErr != nil {
		return models.PeriodCounts{}, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.PeriodCounts
	for _, res := range m.reservations {
		if res.TargetDate != date || !containsStatus(statuses, res.Status) {
			continue
		}
		counts.Total++
		if res.Period == models.PeriodMorning {
			counts.Morning++
		} else {
			counts.Afternoon++
		}
	}
	return counts, nil
}

func (m *memoryStore) CountByStatus(_ context.Context, date string, status models.ReservationStatus) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, res := range m.reservations {
		if res.TargetDate == date && res.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) HasActiveChild(_ context.Context, date, childKey string) (bool, error) {
	if m.missActive {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeChildLocked(date, childKey, ""), nil
}

func (m *memoryStore) activeChildLocked(date, childKey, exceptID string) bool {
	for _, res := range m.reservations {
		if res.ID == exceptID || res.TargetDate != date || res.ChildKey == nil || *res.ChildKey != childKey {
			continue
		}
		if !res.Status.Terminal() {
			return true
		}
	}
	return false
}

func (m *memoryStore) FindOverride(_ context.Context, date string) (*models.DailyOverride, error) {
	if m.overrideErr != nil {
		return nil, m.overrideErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.overrides[date]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStore) Insert(_ context.Context, res *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uniqueIndex && res.ChildKey != nil && m.activeChildLocked(res.TargetDate, *res.ChildKey, "") {
		return repository.ErrDuplicateChild
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	res.Version = 1
	res.UpdatedAt = res.CreatedAt
	copied := *res
	m.reservations = append(m.reservations, &copied)
	return nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, res := range m.reservations {
		if res.ID == id {
			copied := *res
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) List(_ context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	items, _ := m.ListForExport(context.Background(), filter.DateFrom, filter.DateTo, filter.Statuses, 1<<20)
	return items, len(items), nil
}

func (m *memoryStore) ListForExport(_ context.Context, from, to string, statuses []models.ReservationStatus, limit int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if from != "" && res.TargetDate < from || to != "" && res.TargetDate > to {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, res.Status) {
			continue
		}
		out = append(out, *res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TargetDate != out[j].TargetDate {
			return out[i].TargetDate < out[j].TargetDate
		}
		return out[i].DropoffTime < out[j].DropoffTime
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) SummarizePeople(context.Context, string, string, string) ([]models.PersonSummary, error) {
	return nil, errors.New("not supported")
}

func (m *memoryStore) UpdateStatus(_ context.Context, id string, status models.ReservationStatus, expectedVersion *int, at time.Time) (*models.Reservation, error) {
	return m.update(id, expectedVersion, at, func(res *models.Reservation) error {
		if m.uniqueIndex && !status.Terminal() && res.ChildKey != nil && m.activeChildLocked(res.TargetDate, *res.ChildKey, res.ID) {
			return repository.ErrDuplicateChild
		}
		res.Status = status
		return nil
	})
}

func (m *memoryStore) UpdateDropoff(_ context.Context, id, dropoffTime string, period models.Period, expectedVersion *int, at time.Time) (*models.Reservation, error) {
	return m.update(id, expectedVersion, at, func(res *models.Reservation) error {
		res.DropoffTime = dropoffTime
		res.Period = period
		return nil
	})
}

func (m *memoryStore) update(id string, expectedVersion *int, at time.Time, apply func(*models.Reservation) error) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.reservations {
		if res.ID != id {
			continue
		}
		if expectedVersion != nil && *expectedVersion != res.Version {
			return nil, sql.ErrNoRows
		}
		if err := apply(res); err != nil {
			return nil, err
		}
		res.Version++
		res.UpdatedAt = at
		copied := *res
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) Upsert(_ context.Context, override *models.DailyOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *override
	m.overrides[override.Date] = &copied
	return nil
}

func (m *memoryStore) ListRange(_ context.Context, from, to string) ([]models.DailyOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DailyOverride
	for date, o := range m.overrides {
		if date >= from && date <= to {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *memoryStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = uuid.NewString()
	m.audits = append(m.audits, log)
	return nil
}

func (m *memoryStore) ListByResource(_ context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLog
	for i := len(m.audits) - 1; i >= 0; i-- {
		a := m.audits[i]
		if a.Resource == resource && a.ResourceID != nil && *a.ResourceID == resourceID {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func containsStatus(statuses []models.ReservationStatus, s models.ReservationStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ReservationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event models.ReservationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}
