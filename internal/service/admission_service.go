package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

// admissionStore is the read surface admission needs. Both the repository
// and a date-locked transaction satisfy it.
type admissionStore interface {
	capacityCounter
	CountByStatus(ctx context.Context, date string, status models.ReservationStatus) (int, error)
	HasActiveChild(ctx context.Context, date, childKey string) (bool, error)
	FindOverride(ctx context.Context, date string) (*models.DailyOverride, error)
}

// AdmissionRequest is one candidate reservation. SubmittedAt is the single
// clock reading used for every time comparison of the evaluation.
type AdmissionRequest struct {
	Date        string
	SubmittedAt time.Time
	DropoffTime string
	ChildKey    string
}

// AdmissionService decides whether a reservation may be accepted, which
// period it consumes and whether it is auto-approved. It holds no state
// besides configuration; callers serialize writes per date.
type AdmissionService struct {
	rules   *calendar.Rules
	limits  models.CapacityLimits
	ledger  *CapacityLedger
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAdmissionService constructs an AdmissionService.
func NewAdmissionService(rules *calendar.Rules, limits models.CapacityLimits, metrics *MetricsService, logger *zap.Logger) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		rules:   rules,
		limits:  limits,
		ledger:  NewCapacityLedger(limits.CountedStatuses),
		metrics: metrics,
		logger:  logger,
	}
}

// Rules exposes the calendar rules the service evaluates against.
func (s *AdmissionService) Rules() *calendar.Rules {
	return s.rules
}

// BlocksDuplicates reports whether a child may hold only one active reservation per date.
func (s *AdmissionService) BlocksDuplicates() bool {
	return s.limits.BlockDuplicateChild
}

// LimitsFor returns the limits in force for a date, applying an override's daily limit.
func (s *AdmissionService) LimitsFor(override *models.DailyOverride) models.CapacityLimits {
	if override != nil && override.DailyLimit != nil && *override.DailyLimit >= 0 {
		return s.limits.WithDaily(*override.DailyLimit)
	}
	return s.limits
}

// Evaluate runs the admission rules in order and stops at the first failure.
// Store errors are returned as errors, never as a rejection.
func (s *AdmissionService) Evaluate(ctx context.Context, store admissionStore, req AdmissionRequest) (models.Decision, error) {
	date, err := s.rules.ParseDate(req.Date)
	if err != nil {
		return models.Decision{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	period, err := calendar.PeriodOf(req.DropoffTime)
	if err != nil {
		return models.Decision{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	override, err := store.FindOverride(ctx, req.Date)
	if err != nil {
		return models.Decision{}, err
	}
	limits := s.LimitsFor(override)

	decision, err := s.decide(ctx, store, req, date, period, override, limits)
	if err != nil {
		return models.Decision{}, err
	}
	s.metrics.RecordAdmission(decision)
	s.logger.Info("admission evaluated",
		zap.String("date", req.Date),
		zap.Bool("admitted", decision.Admitted),
		zap.String("reason", string(decision.Reason)),
		zap.String("period", string(decision.Period)),
		zap.String("status", string(decision.Status)),
	)
	return decision, nil
}

func (s *AdmissionService) decide(ctx context.Context, store admissionStore, req AdmissionRequest, date time.Time, period models.Period, override *models.DailyOverride, limits models.CapacityLimits) (models.Decision, error) {
	if s.rules.IsClosed(date, override) {
		return models.Reject(models.ReasonClosed), nil
	}
	if !s.rules.WithinBookingWindow(date, req.SubmittedAt) {
		return models.Reject(models.ReasonOutsideWindow), nil
	}

	if limits.BlockDuplicateChild && req.ChildKey != "" {
		dup, err := store.HasActiveChild(ctx, req.Date, req.ChildKey)
		if err != nil {
			return models.Decision{}, err
		}
		if dup {
			return models.Reject(models.ReasonDuplicateChild), nil
		}
	}

	counts, err := s.ledger.Counts(ctx, store, req.Date)
	if err != nil {
		return models.Decision{}, err
	}
	if counts.Total >= limits.Daily {
		return models.Reject(models.ReasonDailyFull), nil
	}
	if counts.Of(period) >= limits.PeriodLimit(period) {
		return models.Reject(models.ReasonPeriodFull), nil
	}

	approved, err := store.CountByStatus(ctx, req.Date, models.StatusApproved)
	if err != nil {
		return models.Decision{}, err
	}
	status := models.StatusPending
	if approved < limits.AutoApproveThreshold {
		status = models.StatusApproved
	}
	return models.Admit(period, status), nil
}

// Availability reports whether date can currently take a reservation. It
// skips the duplicate and auto-approval steps. A failed override lookup is
// logged and treated as no override; a failed count is returned.
func (s *AdmissionService) Availability(ctx context.Context, store admissionStore, rawDate string, now time.Time, clock string) (*models.Availability, error) {
	date, err := s.rules.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	var period models.Period
	if clock != "" {
		if period, err = calendar.PeriodOf(clock); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}

	override, err := store.FindOverride(ctx, rawDate)
	if err != nil {
		s.logger.Warn("override lookup failed, assuming none", zap.String("date", rawDate), zap.Error(err))
		override = nil
	}
	limits := s.LimitsFor(override)

	counts, err := s.ledger.Counts(ctx, store, rawDate)
	if err != nil {
		return nil, err
	}
	remaining := Remaining(limits, counts)

	reason := s.rules.ClosureReason(date, override)
	within := s.rules.WithinBookingWindow(date, now)

	hasRoom := remaining.Daily > 0
	if period != "" {
		hasRoom = hasRoom && remaining.Of(period) > 0
	} else {
		hasRoom = hasRoom && (remaining.Morning > 0 || remaining.Afternoon > 0)
	}

	return &models.Availability{
		Date:                rawDate,
		Closed:              reason != calendar.ClosureNone,
		ClosedReason:        string(reason),
		WithinBookingWindow: within,
		BookableDate:        s.rules.FormatDate(s.rules.BookableDate(now)),
		CanReserve:          reason == calendar.ClosureNone && within && hasRoom,
		Remaining:           remaining,
	}, nil
}

// Snapshot returns the staff capacity view for date.
func (s *AdmissionService) Snapshot(ctx context.Context, store admissionStore, rawDate string) (*models.CapacitySnapshot, error) {
	if _, err := s.rules.ParseDate(rawDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	override, err := store.FindOverride(ctx, rawDate)
	if err != nil {
		return nil, err
	}
	limits := s.LimitsFor(override)

	counts, err := s.ledger.Counts(ctx, store, rawDate)
	if err != nil {
		return nil, err
	}
	approved, err := store.CountByStatus(ctx, rawDate, models.StatusApproved)
	if err != nil {
		return nil, err
	}

	return &models.CapacitySnapshot{
		Date: rawDate,
		Limits: models.CapacityView{
			Daily:                limits.Daily,
			Morning:              limits.Morning,
			Afternoon:            limits.Afternoon,
			AutoApproveThreshold: limits.AutoApproveThreshold,
		},
		Counts:    counts,
		Approved:  approved,
		Remaining: Remaining(limits, counts),
		Override:  override,
	}, nil
}
