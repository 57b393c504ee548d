package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/response"
)

type reservationService interface {
	Availability(ctx context.Context, query dto.AvailabilityQuery) (*models.Availability, error)
	Submit(ctx context.Context, req dto.SubmitReservationRequest) (*models.Reservation, error)
}

// ReservationHandler serves the public guardian endpoints.
type ReservationHandler struct {
	service reservationService
}

// NewReservationHandler builds a new handler.
func NewReservationHandler(service reservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// Availability godoc
// @Summary Availability for a date
// @Description Closure state, booking window and remaining capacity. With time, canReserve applies the period sub-capacity.
// @Tags Reservations
// @Produce json
// @Param date query string true "Target date (YYYY-MM-DD)"
// @Param time query string false "Drop-off time (HH:MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /availability [get]
func (h *ReservationHandler) Availability(c *gin.Context) {
	query := dto.AvailabilityQuery{
		Date: pickQuery(c, "date"),
		Time: pickQuery(c, "time", "dropoffTime", "dropoff_time"),
	}
	availability, err := h.service.Availability(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Submit godoc
// @Summary Submit a reservation
// @Description Admits or rejects a drop-off reservation. Rejections carry one of CLOSED, OUTSIDE_WINDOW, DAILY_FULL, PERIOD_FULL, DUPLICATE_CHILD.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.SubmitReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Submit(c *gin.Context) {
	var req dto.SubmitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}

	res, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SubmitReservationResponse{ID: res.ID, Status: res.Status, Period: res.Period})
}
