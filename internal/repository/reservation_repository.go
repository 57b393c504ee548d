package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

const (
	uniqueViolation      = "23505"
	activeChildIndexName = "reservations_active_child_uidx"

	reservationColumns = `id, guardian_name, email, child_name, child_birthdate::text AS child_birthdate, child_key, target_date::text AS target_date, dropoff_time, period, status, version, created_at, updated_at`
)

// ErrDuplicateChild reports that the active-child unique index rejected a write.
var ErrDuplicateChild = errors.New("active reservation already exists for child on date")

// ReservationTx is the query surface available while a date lock is held.
type ReservationTx interface {
	CountByPeriod(ctx context.Context, date string, statuses []models.ReservationStatus) (models.PeriodCounts, error)
	CountByStatus(ctx context.Context, date string, status models.ReservationStatus) (int, error)
	HasActiveChild(ctx context.Context, date, childKey string) (bool, error)
	FindOverride(ctx context.Context, date string) (*models.DailyOverride, error)
	Insert(ctx context.Context, res *models.Reservation) error
}

type reservationQueries struct {
	ext sqlx.ExtContext
}

// ReservationRepository provides database access for reservations.
type ReservationRepository struct {
	reservationQueries
	db *sqlx.DB
}

// NewReservationRepository creates a new instance of ReservationRepository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{reservationQueries: reservationQueries{ext: db}, db: db}
}

// WithinDateLock runs fn in a transaction holding the advisory lock for date,
// so admissions for one date are serialized across processes.
func (r *ReservationRepository) WithinDateLock(ctx context.Context, date string, fn func(tx ReservationTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dateLockKey(date)); err != nil {
		return fmt.Errorf("lock reservation date: %w", err)
	}

	if err = fn(reservationQueries{ext: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation tx: %w", err)
	}
	return nil
}

func dateLockKey(date string) string {
	return "reservation:" + date
}

// CountByPeriod counts reservations on date in the given statuses, split by period.
func (q reservationQueries) CountByPeriod(ctx context.Context, date string, statuses []models.ReservationStatus) (models.PeriodCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE period = 'morning') AS morning, COUNT(*) FILTER (WHERE period = 'afternoon') AS afternoon FROM reservations WHERE target_date = $1 AND status = ANY($2)`
	var counts models.PeriodCounts
	if err := sqlx.GetContext(ctx, q.ext, &counts, query, date, pq.Array(statusStrings(statuses))); err != nil {
		return models.PeriodCounts{}, fmt.Errorf("count reservations by period: %w", err)
	}
	return counts, nil
}

// CountByStatus counts reservations on date with exactly the given status.
func (q reservationQueries) CountByStatus(ctx context.Context, date string, status models.ReservationStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM reservations WHERE target_date = $1 AND status = $2`
	var count int
	if err := sqlx.GetContext(ctx, q.ext, &count, query, date, status); err != nil {
		return 0, fmt.Errorf("count reservations by status: %w", err)
	}
	return count, nil
}

// HasActiveChild reports whether a pending or approved reservation exists for childKey on date.
func (q reservationQueries) HasActiveChild(ctx context.Context, date, childKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reservations WHERE target_date = $1 AND child_key = $2 AND status IN ('pending', 'approved'))`
	var exists bool
	if err := sqlx.GetContext(ctx, q.ext, &exists, query, date, childKey); err != nil {
		return false, fmt.Errorf("check active child reservation: %w", err)
	}
	return exists, nil
}

// FindOverride returns the override for date, or nil when none is set.
func (q reservationQueries) FindOverride(ctx context.Context, date string) (*models.DailyOverride, error) {
	var override models.DailyOverride
	if err := sqlx.GetContext(ctx, q.ext, &override, overrideSelect+` WHERE date = $1`, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find override: %w", err)
	}
	return &override, nil
}

// Insert stores a new reservation.
func (q reservationQueries) Insert(ctx context.Context, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = res.CreatedAt
	if res.Version == 0 {
		res.Version = 1
	}
	const query = `INSERT INTO reservations (id, guardian_name, email, child_name, child_birthdate, child_key, target_date, dropoff_time, period, status, version, created_at, updated_at) VALUES (:id, :guardian_name, :email, :child_name, :child_birthdate, :child_key, :target_date, :dropoff_time, :period, :status, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, q.ext, query, res); err != nil {
		if isActiveChildViolation(err) {
			return ErrDuplicateChild
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// FindByID returns a reservation by identifier.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find reservation by id: %w", err)
	}
	return &res, nil
}

// List returns reservations based on filters with total count.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	where, args := reservationConditions(filter.DateFrom, filter.DateTo, filter.Statuses, filter.Search)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM reservations%s ORDER BY target_date %s, dropoff_time ASC, created_at ASC LIMIT %d OFFSET %d",
		reservationColumns, where, order, size, (page-1)*size)
	var items []models.Reservation
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reservations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return items, total, nil
}

// ListForExport returns reservations in schedule order, capped at limit rows.
func (r *ReservationRepository) ListForExport(ctx context.Context, from, to string, statuses []models.ReservationStatus, limit int) ([]models.Reservation, error) {
	where, args := reservationConditions(from, to, statuses, "")
	query := fmt.Sprintf("SELECT %s FROM reservations%s ORDER BY target_date ASC, dropoff_time ASC, created_at ASC LIMIT %d", reservationColumns, where, limit)
	var items []models.Reservation
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list reservations for export: %w", err)
	}
	return items, nil
}

// SummarizePeople rolls reservations up per guardian name and lower-cased email.
func (r *ReservationRepository) SummarizePeople(ctx context.Context, from, to, search string) ([]models.PersonSummary, error) {
	where, args := reservationConditions(from, to, nil, search)
	query := `SELECT guardian_name, lower(email) AS email, COUNT(DISTINCT child_key) AS child_count, ` +
		`COALESCE(string_agg(DISTINCT CASE WHEN child_birthdate IS NULL THEN child_name ELSE child_name || '(' || child_birthdate::text || ')' END, '; '), '') AS children, ` +
		`MIN(target_date)::text AS first_date, MAX(target_date)::text AS last_date, COUNT(*) AS total ` +
		`FROM reservations` + where + ` GROUP BY guardian_name, lower(email) ORDER BY guardian_name ASC, email ASC`
	var people []models.PersonSummary
	if err := r.db.SelectContext(ctx, &people, query, args...); err != nil {
		return nil, fmt.Errorf("summarize people: %w", err)
	}
	return people, nil
}

// UpdateStatus sets a new status and bumps the version. When expectedVersion
// is set the row is only updated if it still carries that version; a miss
// returns sql.ErrNoRows.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status models.ReservationStatus, expectedVersion *int, at time.Time) (*models.Reservation, error) {
	return r.update(ctx, "status = $2", []interface{}{id, status}, expectedVersion, at)
}

// UpdateDropoff corrects the drop-off time and its derived period.
func (r *ReservationRepository) UpdateDropoff(ctx context.Context, id, dropoffTime string, period models.Period, expectedVersion *int, at time.Time) (*models.Reservation, error) {
	return r.update(ctx, "dropoff_time = $2, period = $3", []interface{}{id, dropoffTime, period}, expectedVersion, at)
}

func (r *ReservationRepository) update(ctx context.Context, set string, args []interface{}, expectedVersion *int, at time.Time) (*models.Reservation, error) {
	args = append(args, at)
	query := fmt.Sprintf("UPDATE reservations SET %s, version = version + 1, updated_at = $%d WHERE id = $1", set, len(args))
	if expectedVersion != nil {
		args = append(args, *expectedVersion)
		query += fmt.Sprintf(" AND version = $%d", len(args))
	}
	query += " RETURNING " + reservationColumns

	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		if isActiveChildViolation(err) {
			return nil, ErrDuplicateChild
		}
		return nil, fmt.Errorf("update reservation: %w", err)
	}
	return &res, nil
}

func reservationConditions(from, to string, statuses []models.ReservationStatus, search string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if from != "" {
		args = append(args, from)
		conditions = append(conditions, fmt.Sprintf("target_date >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		conditions = append(conditions, fmt.Sprintf("target_date <= $%d", len(args)))
	}
	if len(statuses) > 0 {
		args = append(args, pq.Array(statusStrings(statuses)))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(guardian_name ILIKE $%d OR email ILIKE $%d OR child_name ILIKE $%d)", n, n, n))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func statusStrings(statuses []models.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isActiveChildViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && (pqErr.Constraint == "" || pqErr.Constraint == activeChildIndexName)
}
