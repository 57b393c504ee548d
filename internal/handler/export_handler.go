package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/response"
)

type exportService interface {
	ReservationsCSV(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
	PeopleCSV(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error)
	RosterPDF(ctx context.Context, date string) (*dto.ExportFile, error)
}

// ExportHandler streams staff downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Reservations godoc
// @Summary Export reservations as CSV
// @Description UTF-8 with BOM and CRLF line endings. Defaults to today.
// @Tags Exports
// @Produce text/csv
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param status query string false "Comma separated statuses"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/export/reservations.csv [get]
func (h *ExportHandler) Reservations(c *gin.Context) {
	file, err := h.service.ReservationsCSV(c.Request.Context(), exportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// People godoc
// @Summary Export guardians and children as CSV
// @Tags Exports
// @Produce text/csv
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param q query string false "Search"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/export/people.csv [get]
func (h *ExportHandler) People(c *gin.Context) {
	file, err := h.service.PeopleCSV(c.Request.Context(), exportQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

// Roster godoc
// @Summary Daily roster PDF
// @Tags Exports
// @Produce application/pdf
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/export/roster.pdf [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	date := pickQuery(c, "date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	file, err := h.service.RosterPDF(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func exportQuery(c *gin.Context) dto.ExportQuery {
	return dto.ExportQuery{
		From:   pickQuery(c, "from", "date_from"),
		To:     pickQuery(c, "to", "date_to"),
		Status: pickQuery(c, "status"),
		Search: pickQuery(c, "q", "search"),
	}
}
