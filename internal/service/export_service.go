package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/childcare-reservation-api/internal/calendar"
	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
	"github.com/noah-isme/childcare-reservation-api/pkg/export"
)

const (
	reservationExportLimit = 5000
	peopleExportLimit      = 10000

	csvContentType = "text/csv; charset=utf-8"
	pdfContentType = "application/pdf"
)

type exportRepository interface {
	ListForExport(ctx context.Context, from, to string, statuses []models.ReservationStatus, limit int) ([]models.Reservation, error)
	SummarizePeople(ctx context.Context, from, to, search string) ([]models.PersonSummary, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, doc export.PDFDocument) ([]byte, error)
}

var reservationColumns = []export.Column{
	{Key: "id", Title: "id"},
	{Key: "created_at", Title: "created_at"},
	{Key: "guardian_name", Title: "guardian_name"},
	{Key: "email", Title: "email"},
	{Key: "target_date", Title: "preferred_date"},
	{Key: "dropoff_time", Title: "dropoff_time"},
	{Key: "period", Title: "time_slot"},
	{Key: "child_name", Title: "child_name"},
	{Key: "child_birthdate", Title: "child_birthdate"},
	{Key: "status", Title: "status"},
}

var peopleColumns = []export.Column{
	{Key: "guardian_name", Title: "guardian_name"},
	{Key: "email", Title: "email"},
	{Key: "child_count", Title: "child_count"},
	{Key: "children", Title: "children"},
	{Key: "first_date", Title: "first_date"},
	{Key: "last_date", Title: "last_date"},
	{Key: "reservations", Title: "reservations"},
}

var rosterColumns = []export.Column{
	{Key: "dropoff_time", Title: "Drop-off"},
	{Key: "period", Title: "Period"},
	{Key: "child_name", Title: "Child"},
	{Key: "child_birthdate", Title: "Birthdate"},
	{Key: "guardian_name", Title: "Guardian"},
	{Key: "email", Title: "Email"},
	{Key: "status", Title: "Status"},
}

// ExportService renders staff downloads from reservation data.
type ExportService struct {
	repo      exportRepository
	rules     *calendar.Rules
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers use the package defaults.
func NewExportService(repo exportRepository, rules *calendar.Rules, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{repo: repo, rules: rules, csv: csv, pdf: pdf, validator: validate, logger: logger, now: time.Now}
}

// ReservationsCSV exports reservations in schedule order. Without a range it
// exports today's reservations in the facility zone.
func (s *ExportService) ReservationsCSV(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid export query")
	}
	statuses, invalid := dto.ParseStatuses(query.Status)
	if len(invalid) > 0 {
		return nil, invalidInput("unknown status filter")
	}

	from, to := query.From, query.To
	if from == "" && to == "" {
		today := s.rules.FormatDate(s.now())
		from, to = today, today
	} else if from == "" {
		from = to
	} else if to == "" {
		to = from
	}
	if from > to {
		return nil, invalidInput("from must not be after to")
	}

	items, err := s.repo.ListForExport(ctx, from, to, statuses, reservationExportLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations for export")
	}
	if len(items) == reservationExportLimit {
		s.logger.Warn("reservation export truncated", zap.String("from", from), zap.String("to", to), zap.Int("limit", reservationExportLimit))
	}

	rows := make([]map[string]string, 0, len(items))
	for _, res := range items {
		rows = append(rows, reservationRow(res, s.rules.Location()))
	}
	payload, err := s.csv.Render(export.Dataset{Columns: reservationColumns, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("reservations_%s_%s.csv", from, to),
		ContentType: csvContentType,
		Payload:     payload,
	}, nil
}

// PeopleCSV exports one row per guardian with their children and date span.
func (s *ExportService) PeopleCSV(ctx context.Context, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid export query")
	}
	if query.From != "" && query.To != "" && query.From > query.To {
		return nil, invalidInput("from must not be after to")
	}

	people, err := s.repo.SummarizePeople(ctx, query.From, query.To, query.Search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize guardians")
	}
	if len(people) > peopleExportLimit {
		people = people[:peopleExportLimit]
	}

	rows := make([]map[string]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, map[string]string{
			"guardian_name": p.GuardianName,
			"email":         p.Email,
			"child_count":   strconv.Itoa(p.ChildCount),
			"children":      p.Children,
			"first_date":    p.FirstDate,
			"last_date":     p.LastDate,
			"reservations":  strconv.Itoa(p.Total),
		})
	}
	payload, err := s.csv.Render(export.Dataset{Columns: peopleColumns, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &dto.ExportFile{
		Filename:    peopleFilename(query.From, query.To),
		ContentType: csvContentType,
		Payload:     payload,
	}, nil
}

// RosterPDF prints the active reservations of one date for the front desk.
func (s *ExportService) RosterPDF(ctx context.Context, date string) (*dto.ExportFile, error) {
	if _, err := s.rules.ParseDate(date); err != nil {
		return nil, invalidInput(err.Error())
	}
	active := []models.ReservationStatus{models.StatusPending, models.StatusApproved}
	items, err := s.repo.ListForExport(ctx, date, date, active, reservationExportLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	var morning, afternoon int
	rows := make([]map[string]string, 0, len(items))
	for _, res := range items {
		if res.Period == models.PeriodMorning {
			morning++
		} else {
			afternoon++
		}
		rows = append(rows, reservationRow(res, s.rules.Location()))
	}

	payload, err := s.pdf.Render(export.Dataset{Columns: rosterColumns, Rows: rows}, export.PDFDocument{
		Title:    "Drop-off roster " + date,
		Subtitle: fmt.Sprintf("Total %d / morning %d / afternoon %d", len(items), morning, afternoon),
		Footer:   "Generated " + s.now().In(s.rules.Location()).Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("roster_%s.pdf", date),
		ContentType: pdfContentType,
		Payload:     payload,
	}, nil
}

func reservationRow(res models.Reservation, loc *time.Location) map[string]string {
	return map[string]string{
		"id":              res.ID,
		"created_at":      res.CreatedAt.In(loc).Format(time.RFC3339),
		"guardian_name":   res.GuardianName,
		"email":           res.Email,
		"target_date":     res.TargetDate,
		"dropoff_time":    res.DropoffTime,
		"period":          string(res.Period),
		"child_name":      deref(res.ChildName),
		"child_birthdate": deref(res.ChildBirthdate),
		"status":          string(res.Status),
	}
}

func peopleFilename(from, to string) string {
	switch {
	case from != "" && to != "":
		return fmt.Sprintf("people_%s_%s.csv", from, to)
	case from != "":
		return fmt.Sprintf("people_%s.csv", from)
	default:
		return "people.csv"
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
