package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/childcare-reservation-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var reservationRowColumns = []string{"id", "guardian_name", "email", "child_name", "child_birthdate", "child_key", "target_date", "dropoff_time", "period", "status", "version", "created_at", "updated_at"}

func reservationRow(rows *sqlmock.Rows, id string, status models.ReservationStatus, version int) *sqlmock.Rows {
	now := time.Date(2025, time.March, 4, 13, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Sato Yuki", "sato@example.com", "Hana", "2021-04-01", "hana|2021-04-01", "2025-03-05", "08:30", "morning", string(status), version, now, now)
}

func TestCountByPeriod(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	rows := sqlmock.NewRows([]string{"total", "morning", "afternoon"}).AddRow(5, 3, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE period = 'morning') AS morning")).
		WithArgs("2025-03-05", sqlmock.AnyArg()).
		WillReturnRows(rows)

	counts, err := repo.CountByPeriod(context.Background(), "2025-03-05", []models.ReservationStatus{models.StatusPending, models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.PeriodCounts{Total: 5, Morning: 3, Afternoon: 2}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reservations WHERE target_date = $1 AND status = $2")).
		WithArgs("2025-03-05", "approved").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByStatus(context.Background(), "2025-03-05", models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasActiveChild(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM reservations WHERE target_date = $1 AND child_key = $2")).
		WithArgs("2025-03-05", "hana|2021-04-01").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasActiveChild(context.Background(), "2025-03-05", "hana|2021-04-01")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindOverrideMissingReturnsNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_overrides WHERE date = $1")).
		WithArgs("2025-03-05").
		WillReturnError(sql.ErrNoRows)

	override, err := repo.FindOverride(context.Background(), "2025-03-05")
	require.NoError(t, err)
	assert.Nil(t, override)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDateLockCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("reservation:2025-03-05").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO reservations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res := &models.Reservation{GuardianName: "Sato Yuki", Email: "sato@example.com", TargetDate: "2025-03-05", DropoffTime: "08:30", Period: models.PeriodMorning, Status: models.StatusApproved}
	err := repo.WithinDateLock(context.Background(), "2025-03-05", func(tx ReservationTx) error {
		return tx.Insert(context.Background(), res)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 1, res.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDateLockRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("rejected")
	err := repo.WithinDateLock(context.Background(), "2025-03-05", func(tx ReservationTx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMapsActiveChildViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "reservations_active_child_uidx"})

	err := repo.Insert(context.Background(), &models.Reservation{TargetDate: "2025-03-05"})
	assert.ErrorIs(t, err, ErrDuplicateChild)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertKeepsOtherUniqueViolations(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectExec("INSERT INTO reservations").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "reservations_pkey"})

	err := repo.Insert(context.Background(), &models.Reservation{ID: "dup", TargetDate: "2025-03-05"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateChild))
}

func TestFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = $1")).
		WithArgs("r-1").
		WillReturnRows(reservationRow(sqlmock.NewRows(reservationRowColumns), "r-1", models.StatusPending, 1))

	res, err := repo.FindByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-05", res.TargetDate)
	assert.Equal(t, models.PeriodMorning, res.Period)
	require.NotNil(t, res.ChildName)
	assert.Equal(t, "Hana", *res.ChildName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusWithExpectedVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	at := time.Date(2025, time.March, 5, 1, 0, 0, 0, time.UTC)
	version := 1
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reservations SET status = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4 RETURNING")).
		WithArgs("r-1", "approved", at, 1).
		WillReturnRows(reservationRow(sqlmock.NewRows(reservationRowColumns), "r-1", models.StatusApproved, 2))

	res, err := repo.UpdateStatus(context.Background(), "r-1", models.StatusApproved, &version, at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Equal(t, 2, res.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusStaleVersionReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	version := 3
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reservations SET status = $2")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "r-1", models.StatusCanceled, &version, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateDropoffWithoutVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	at := time.Date(2025, time.March, 5, 1, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reservations SET dropoff_time = $2, period = $3, version = version + 1, updated_at = $4 WHERE id = $1 RETURNING")).
		WithArgs("r-1", "13:15", "afternoon", at).
		WillReturnRows(reservationRow(sqlmock.NewRows(reservationRowColumns), "r-1", models.StatusApproved, 2))

	_, err := repo.UpdateDropoff(context.Background(), "r-1", "13:15", models.PeriodAfternoon, nil, at)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE target_date >= $1 AND target_date <= $2 AND status = ANY($3) AND (guardian_name ILIKE $4 OR email ILIKE $4 OR child_name ILIKE $4) ORDER BY target_date ASC, dropoff_time ASC, created_at ASC LIMIT 20 OFFSET 20")).
		WithArgs("2025-03-01", "2025-03-31", sqlmock.AnyArg(), "%sato%").
		WillReturnRows(reservationRow(sqlmock.NewRows(reservationRowColumns), "r-1", models.StatusPending, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reservations WHERE target_date >= $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	items, total, err := repo.List(context.Background(), models.ReservationFilter{
		DateFrom:  "2025-03-01",
		DateTo:    "2025-03-31",
		Statuses:  []models.ReservationStatus{models.StatusPending},
		Search:    " sato ",
		Page:      2,
		PageSize:  20,
		SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 21, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarizePeople(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db)

	rows := sqlmock.NewRows([]string{"guardian_name", "email", "child_count", "children", "first_date", "last_date", "total"}).
		AddRow("Sato Yuki", "sato@example.com", 1, "Hana(2021-04-01)", "2025-03-03", "2025-03-05", 2)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY guardian_name, lower(email)")).
		WithArgs("2025-03-01", "2025-03-31").
		WillReturnRows(rows)

	people, err := repo.SummarizePeople(context.Background(), "2025-03-01", "2025-03-31", "")
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, 2, people[0].Total)
	assert.Equal(t, "Hana(2021-04-01)", people[0].Children)
	assert.NoError(t, mock.ExpectationsWereMet())
}
