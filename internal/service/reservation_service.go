package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	"github.com/noah-isme/childcare-reservation-api/internal/repository"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

const (
	defaultStoreTimeout = 3 * time.Second
	auditResource       = "reservation"
	historyLimit        = 100
)

type reservationRepository interface {
	admissionStore
	WithinDateLock(ctx context.Context, date string, fn func(tx repository.ReservationTx) error) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ReservationStatus, expectedVersion *int, at time.Time) (*models.Reservation, error)
	UpdateDropoff(ctx context.Context, id, dropoffTime string, period models.Period, expectedVersion *int, at time.Time) (*models.Reservation, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

type reservationNotifier interface {
	Notify(ctx context.Context, event models.ReservationEvent)
}

// ReservationService runs guardian submissions and staff mutations.
type ReservationService struct {
	repo         reservationRepository
	admission    *AdmissionService
	audit        auditRecorder
	notifier     reservationNotifier
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewReservationService constructs a ReservationService. A zero storeTimeout uses the default.
func NewReservationService(repo reservationRepository, admission *AdmissionService, audit auditRecorder, notifier reservationNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, storeTimeout time.Duration) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &ReservationService{
		repo:         repo,
		admission:    admission,
		audit:        audit,
		notifier:     notifier,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// Availability reports the read-only admission state of a date.
func (s *ReservationService) Availability(ctx context.Context, query dto.AvailabilityQuery) (*models.Availability, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid availability query")
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	availability, err := s.admission.Availability(ctx, s.repo, query.Date, s.now(), query.Time)
	s.metrics.ObserveDBQuery("availability", time.Since(start))
	if err != nil {
		return nil, s.storeError(ctx, err, "failed to compute availability")
	}
	return availability, nil
}

// Capacity returns the staff view of a date's counts and effective limits.
func (s *ReservationService) Capacity(ctx context.Context, date string) (*models.CapacitySnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	snapshot, err := s.admission.Snapshot(ctx, s.repo, date)
	s.metrics.ObserveDBQuery("capacity_snapshot", time.Since(start))
	if err != nil {
		return nil, s.storeError(ctx, err, "failed to load capacity")
	}
	return snapshot, nil
}

// Submit admits or rejects a guardian submission. Admission and insert run
// under the per-date lock so concurrent submissions cannot overrun capacity.
func (s *ReservationService) Submit(ctx context.Context, req dto.SubmitReservationRequest) (*models.Reservation, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid reservation payload")
	}
	clock, err := calendar.ParseClock(req.DropoffTime)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	submittedAt := s.now()
	var childKey string
	if s.admission.BlocksDuplicates() {
		childKey = req.ChildKey()
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		decision models.Decision
		created  *models.Reservation
	)
	start := time.Now()
	err = s.repo.WithinDateLock(ctx, req.PreferredDate, func(tx repository.ReservationTx) error {
		d, err := s.admission.Evaluate(ctx, tx, AdmissionRequest{
			Date:        req.PreferredDate,
			SubmittedAt: submittedAt,
			DropoffTime: clock,
			ChildKey:    childKey,
		})
		if err != nil {
			return err
		}
		decision = d
		if !d.Admitted {
			return nil
		}

		res := &models.Reservation{
			GuardianName:   req.GuardianName,
			Email:          req.Email,
			ChildName:      optionalString(req.ChildName),
			ChildBirthdate: optionalString(req.ChildBirthdate),
			ChildKey:       optionalString(childKey),
			TargetDate:     req.PreferredDate,
			DropoffTime:    clock,
			Period:         d.Period,
			Status:         d.Status,
			CreatedAt:      submittedAt.UTC(),
		}
		if err := tx.Insert(ctx, res); err != nil {
			return err
		}
		created = res
		return nil
	})
	elapsed := time.Since(start)
	s.metrics.ObserveAdmission(elapsed)
	s.metrics.ObserveDBQuery("admission_tx", elapsed)

	if errors.Is(err, repository.ErrDuplicateChild) {
		decision = models.Reject(models.ReasonDuplicateChild)
		s.metrics.RecordAdmission(decision)
		err = nil
	}
	if err != nil {
		s.logger.Error("reservation admission failed", zap.String("date", req.PreferredDate), zap.Error(err))
		return nil, s.storeError(ctx, err, "failed to submit reservation")
	}
	if !decision.Admitted {
		return nil, RejectionError(decision.Reason)
	}

	s.notify(ctx, models.EventReservationCreated, created, "")
	return created, nil
}

// Get loads a single reservation.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	// ids are uuid columns; anything else can never match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}
	start := time.Now()
	res, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("find_reservation", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return res, nil
}

// List returns reservations matching the staff query with pagination.
func (s *ReservationService) List(ctx context.Context, query dto.ReservationListQuery) ([]models.Reservation, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid list query")
	}
	statuses, invalid := dto.ParseStatuses(query.Status)
	if len(invalid) > 0 {
		return nil, nil, invalidInput("unknown status filter")
	}
	filter := models.ReservationFilter{
		DateFrom:  query.From,
		DateTo:    query.To,
		Statuses:  statuses,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortOrder: query.Sort,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}

	start := time.Now()
	items, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("list_reservations", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// UpdateStatus moves a reservation to a new status. Without a version the
// write is last-write-wins; with one a stale version yields 412. Setting the
// current status again is a no-op.
func (s *ReservationService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Actor) (*models.Reservation, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}
	target := models.ReservationStatus(req.Status)

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != current.Version {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation was modified by someone else, reload and retry")
	}
	if current.Status == target {
		return current, nil
	}

	start := time.Now()
	updated, err := s.repo.UpdateStatus(ctx, id, target, req.Version, s.now().UTC())
	s.metrics.ObserveDBQuery("update_status", time.Since(start))
	if err != nil {
		return nil, s.mutationError(err, req.Version, "failed to update reservation status")
	}

	s.recordAudit(ctx, actor, models.AuditActionStatusChange, id,
		map[string]interface{}{"status": current.Status, "version": current.Version},
		map[string]interface{}{"status": updated.Status, "version": updated.Version})
	s.logger.Info("reservation status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", actor.Username),
	)
	s.notify(ctx, models.EventReservationStatusChanged, updated, current.Status)
	return updated, nil
}

// UpdateDropoff corrects the drop-off time and recomputes the period. Capacity
// is not re-checked; staff edits may override admission rules.
func (s *ReservationService) UpdateDropoff(ctx context.Context, id string, req dto.UpdateDropoffRequest, actor models.Actor) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid drop-off payload")
	}
	clock, err := calendar.ParseClock(req.DropoffTime)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	period, err := calendar.PeriodOf(clock)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != current.Version {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation was modified by someone else, reload and retry")
	}
	if current.DropoffTime == clock {
		return current, nil
	}

	start := time.Now()
	updated, err := s.repo.UpdateDropoff(ctx, id, clock, period, req.Version, s.now().UTC())
	s.metrics.ObserveDBQuery("update_dropoff", time.Since(start))
	if err != nil {
		return nil, s.mutationError(err, req.Version, "failed to update drop-off time")
	}
	s.recordAudit(ctx, actor, models.AuditActionDropoffChange, id,
		map[string]interface{}{"dropoff_time": current.DropoffTime, "period": current.Period},
		map[string]interface{}{"dropoff_time": updated.DropoffTime, "period": updated.Period})
	return updated, nil
}

// History lists the audit trail of a reservation, newest first.
func (s *ReservationService) History(ctx context.Context, id string) ([]models.AuditLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.audit.ListByResource(ctx, auditResource, id, historyLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation history")
	}
	return logs, nil
}

// RejectionError maps an admission rejection to its typed API error.
func RejectionError(reason models.RejectionReason) *appErrors.Error {
	switch reason {
	case models.ReasonClosed:
		return appErrors.Clone(appErrors.ErrClosed, "")
	case models.ReasonOutsideWindow:
		return appErrors.Clone(appErrors.ErrOutsideWindow, "")
	case models.ReasonDailyFull:
		return appErrors.Clone(appErrors.ErrDailyFull, "")
	case models.ReasonPeriodFull:
		return appErrors.Clone(appErrors.ErrPeriodFull, "")
	case models.ReasonDuplicateChild:
		return appErrors.Clone(appErrors.ErrDuplicateChild, "")
	default:
		return appErrors.Clone(appErrors.ErrInternal, "unknown rejection reason")
	}
}

// storeError keeps typed errors, reports deadline overruns as STORE_TIMEOUT
// and everything else as an internal failure.
func (s *ReservationService) storeError(ctx context.Context, err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrStoreTimeout.Code, appErrors.ErrStoreTimeout.Status, appErrors.ErrStoreTimeout.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ReservationService) mutationError(err error, version *int, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows) && version != nil:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "reservation was modified by someone else, reload and retry")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	case errors.Is(err, repository.ErrDuplicateChild):
		return RejectionError(models.ReasonDuplicateChild)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ReservationService) recordAudit(ctx context.Context, actor models.Actor, action, id string, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	oldJSON, _ := json.Marshal(oldValues)
	newJSON, _ := json.Marshal(newValues)
	entry := &models.AuditLog{
		Actor:      optionalString(actor.Username),
		Action:     action,
		Resource:   auditResource,
		ResourceID: &id,
		OldValues:  oldJSON,
		NewValues:  newJSON,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.String("id", id), zap.Error(err))
	}
}

func (s *ReservationService) notify(ctx context.Context, eventType string, res *models.Reservation, previous models.ReservationStatus) {
	if s.notifier == nil || res == nil {
		return
	}
	s.notifier.Notify(ctx, models.NewReservationEvent(eventType, res, previous, s.now().UTC()))
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
