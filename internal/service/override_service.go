package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

type overrideRepository interface {
	FindOverride(ctx context.Context, date string) (*models.DailyOverride, error)
	Upsert(ctx context.Context, override *models.DailyOverride) error
	ListRange(ctx context.Context, from, to string) ([]models.DailyOverride, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// OverrideService manages per-date staff overrides.
type OverrideService struct {
	repo      overrideRepository
	rules     *calendar.Rules
	audit     loginAuditRecorder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOverrideService constructs an OverrideService.
func NewOverrideService(repo overrideRepository, rules *calendar.Rules, audit loginAuditRecorder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *OverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideService{repo: repo, rules: rules, audit: audit, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Get returns the override for date. A date without one reports open with no limit.
func (s *OverrideService) Get(ctx context.Context, date string) (*models.DailyOverride, error) {
	if _, err := s.rules.ParseDate(date); err != nil {
		return nil, invalidInput(err.Error())
	}
	override, err := s.repo.FindOverride(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if override == nil {
		return &models.DailyOverride{Date: date, IsOpen: true}, nil
	}
	return override, nil
}

// Upsert sets the override for date and drops the cached calendar month.
func (s *OverrideService) Upsert(ctx context.Context, date string, req dto.UpsertOverrideRequest, actor models.Actor) (*models.DailyOverride, error) {
	parsed, err := s.rules.ParseDate(date)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid override payload")
	}

	previous, err := s.repo.FindOverride(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}

	override := &models.DailyOverride{
		Date:       date,
		IsOpen:     *req.IsOpen,
		DailyLimit: req.DailyLimit,
		UpdatedAt:  s.now().UTC(),
	}
	if req.Note != nil {
		if note := strings.TrimSpace(*req.Note); note != "" {
			override.Note = &note
		}
	}
	if actor.Username != "" {
		username := actor.Username
		override.UpdatedBy = &username
	}
	if err := s.repo.Upsert(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save override")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, monthCacheKey(parsed))
	}
	s.recordAudit(ctx, actor, previous, override)
	s.logger.Info("daily override set", zap.String("date", date), zap.Bool("is_open", override.IsOpen), zap.String("actor", actor.Username))
	return override, nil
}

func (s *OverrideService) recordAudit(ctx context.Context, actor models.Actor, previous, current *models.DailyOverride) {
	if s.audit == nil {
		return
	}
	var oldValues []byte
	if previous != nil {
		oldValues, _ = json.Marshal(previous)
	}
	newValues, _ := json.Marshal(current)
	date := current.Date
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Actor:      optionalString(actor.Username),
		Action:     models.AuditActionOverrideSet,
		Resource:   "daily_override",
		ResourceID: &date,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("date", date), zap.Error(err))
	}
}

func monthCacheKey(date time.Time) string {
	return "month:" + date.Format("2006-01")
}
