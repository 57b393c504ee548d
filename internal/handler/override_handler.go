package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/middleware"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/response"
)

type overrideService interface {
	Get(ctx context.Context, date string) (*models.DailyOverride, error)
	Upsert(ctx context.Context, date string, req dto.UpsertOverrideRequest, actor models.Actor) (*models.DailyOverride, error)
}

type calendarService interface {
	Month(ctx context.Context, month string) (*models.CalendarMonth, bool, error)
}

// OverrideHandler manages per-date closures and limits.
type OverrideHandler struct {
	service overrideService
}

// NewOverrideHandler builds a new handler.
func NewOverrideHandler(service overrideService) *OverrideHandler {
	return &OverrideHandler{service: service}
}

// Get godoc
// @Summary Get the override for a date
// @Tags Admin
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/overrides/{date} [get]
func (h *OverrideHandler) Get(c *gin.Context) {
	override, err := h.service.Get(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Upsert godoc
// @Summary Set the override for a date
// @Description Closes or reopens a date and optionally replaces its daily limit.
// @Tags Admin
// @Accept json
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body dto.UpsertOverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/overrides/{date} [put]
func (h *OverrideHandler) Upsert(c *gin.Context) {
	var req dto.UpsertOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	override, err := h.service.Upsert(c.Request.Context(), c.Param("date"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// CalendarHandler serves the public month view.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler builds a new handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Month godoc
// @Summary Month calendar
// @Description Every date of the month with its closure reason.
// @Tags Calendar
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Month(c *gin.Context) {
	month := pickQuery(c, "month")
	if month == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month is required"))
		return
	}
	view, cacheHit, err := h.service.Month(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ResponseMeta(c))
}
