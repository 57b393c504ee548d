package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

type overrideRangeReader interface {
	ListRange(ctx context.Context, from, to string) ([]models.DailyOverride, error)
}

type monthCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// CalendarService renders the month view of open and closed dates.
type CalendarService struct {
	rules     *calendar.Rules
	overrides overrideRangeReader
	cache     monthCache
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCalendarService constructs a CalendarService. cache may be nil.
func NewCalendarService(rules *calendar.Rules, overrides overrideRangeReader, cache monthCache, ttl time.Duration, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{rules: rules, overrides: overrides, cache: cache, ttl: ttl, logger: logger}
}

// Month returns every date of month (YYYY-MM) with its closure state and
// whether it was served from cache.
func (s *CalendarService) Month(ctx context.Context, month string) (*models.CalendarMonth, bool, error) {
	first, err := s.rules.ParseMonth(month)
	if err != nil {
		return nil, false, invalidInput(err.Error())
	}
	key := monthCacheKey(first)

	var cached models.CalendarMonth
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	days := s.rules.MonthDays(first)
	from := s.rules.FormatDate(days[0])
	to := s.rules.FormatDate(days[len(days)-1])

	overrides, err := s.overrides.ListRange(ctx, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}
	byDate := make(map[string]*models.DailyOverride, len(overrides))
	for i := range overrides {
		byDate[overrides[i].Date] = &overrides[i]
	}

	result := &models.CalendarMonth{Month: first.Format("2006-01"), Days: make([]models.CalendarDay, 0, len(days))}
	for _, day := range days {
		date := s.rules.FormatDate(day)
		override := byDate[date]
		reason := s.rules.ClosureReason(day, override)
		entry := models.CalendarDay{
			Date:        date,
			Weekday:     day.Weekday().String(),
			Closed:      reason != calendar.ClosureNone,
			Reason:      string(reason),
			HolidayName: s.rules.HolidayName(day),
		}
		if override != nil && override.Note != nil {
			entry.Note = *override.Note
		}
		result.Days = append(result.Days, entry)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, result, s.ttl)
	}
	return result, false, nil
}
