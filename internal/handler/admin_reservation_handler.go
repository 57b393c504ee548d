package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/response"
)

type adminReservationService interface {
	List(ctx context.Context, query dto.ReservationListQuery) ([]models.Reservation, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor models.Actor) (*models.Reservation, error)
	UpdateDropoff(ctx context.Context, id string, req dto.UpdateDropoffRequest, actor models.Actor) (*models.Reservation, error)
	History(ctx context.Context, id string) ([]models.AuditLog, error)
	Capacity(ctx context.Context, date string) (*models.CapacitySnapshot, error)
}

// AdminReservationHandler exposes the staff reservation console.
type AdminReservationHandler struct {
	service adminReservationService
}

// NewAdminReservationHandler builds a new handler.
func NewAdminReservationHandler(service adminReservationService) *AdminReservationHandler {
	return &AdminReservationHandler{service: service}
}

// List godoc
// @Summary List reservations
// @Tags Admin
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param status query string false "Comma separated statuses"
// @Param q query string false "Guardian, email or child name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size (max 200)"
// @Param sort query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations [get]
func (h *AdminReservationHandler) List(c *gin.Context) {
	query := dto.ReservationListQuery{
		From:   pickQuery(c, "from", "date_from"),
		To:     pickQuery(c, "to", "date_to"),
		Status: pickQuery(c, "status"),
		Search: pickQuery(c, "q", "search"),
		Sort:   pickQuery(c, "sort"),
	}
	var err error
	if query.Page, err = intQuery(c, "page"); err != nil {
		response.Error(c, err)
		return
	}
	if query.PageSize, err = intQuery(c, "page_size", "pageSize", "limit"); err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a reservation
// @Tags Admin
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id} [get]
func (h *AdminReservationHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateStatus godoc
// @Summary Change reservation status
// @Description Last-write-wins unless version is sent; a stale version returns 412.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param payload body dto.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id}/status [patch]
func (h *AdminReservationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	res, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateDropoff godoc
// @Summary Correct the drop-off time
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param payload body dto.UpdateDropoffRequest true "Drop-off payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id}/dropoff [patch]
func (h *AdminReservationHandler) UpdateDropoff(c *gin.Context) {
	var req dto.UpdateDropoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid drop-off payload"))
		return
	}
	res, err := h.service.UpdateDropoff(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// History godoc
// @Summary Reservation audit trail
// @Tags Admin
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id}/history [get]
func (h *AdminReservationHandler) History(c *gin.Context) {
	logs, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// Capacity godoc
// @Summary Capacity for a date
// @Tags Admin
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/capacity [get]
func (h *AdminReservationHandler) Capacity(c *gin.Context) {
	date := pickQuery(c, "date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	snapshot, err := h.service.Capacity(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

func intQuery(c *gin.Context, keys ...string) (int, error) {
	raw := pickQuery(c, keys...)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, keys[0]+" must be a non-negative integer")
	}
	return n, nil
}
