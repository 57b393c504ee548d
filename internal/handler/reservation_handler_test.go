package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/childcare-reservation-api/internal/dto"
	"github.com/noah-isme/childcare-reservation-api/internal/models"
	appErrors "github.com/noah-isme/childcare-reservation-api/pkg/errors"
)

type reservationServiceMock struct {
	availability *models.Availability
	submitResp   *models.Reservation
	err          error
	lastQuery    dto.AvailabilityQuery
	lastSubmit   dto.SubmitReservationRequest
}

func (m *reservationServiceMock) Availability(_ context.Context, query dto.AvailabilityQuery) (*models.Availability, error) {
	m.lastQuery = query
	return m.availability, m.err
}

func (m *reservationServiceMock) Submit(_ context.Context, req dto.SubmitReservationRequest) (*models.Reservation, error) {
	m.lastSubmit = req
	return m.submitResp, m.err
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
	Meta  map[string]interface{}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestReservationHandlerAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{availability: &models.Availability{Date: "2025-03-05", CanReserve: true}}
	handler := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/availability?date=2025-03-05&dropoff_time=09:30", nil)

	handler.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-05", mockSvc.lastQuery.Date)
	assert.Equal(t, "09:30", mockSvc.lastQuery.Time)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"canReserve":true`)
}

func TestReservationHandlerSubmitCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{submitResp: &models.Reservation{ID: "r-1", Status: models.StatusApproved, Period: models.PeriodMorning}}
	handler := NewReservationHandler(mockSvc)

	body := `{"guardian_name":"Sato","email":"sato@example.com","preferred_date":"2025-03-05","dropoff_time":"09:00"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Sato", mockSvc.lastSubmit.GuardianName)
	assert.Equal(t, "2025-03-05", mockSvc.lastSubmit.PreferredDate)

	var data dto.SubmitReservationResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, "r-1", data.ID)
	assert.Equal(t, models.StatusApproved, data.Status)
}

func TestReservationHandlerSubmitRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    *appErrors.Error
		status int
	}{
		{appErrors.ErrClosed, http.StatusUnprocessableEntity},
		{appErrors.ErrOutsideWindow, http.StatusUnprocessableEntity},
		{appErrors.ErrDailyFull, http.StatusConflict},
		{appErrors.ErrPeriodFull, http.StatusConflict},
		{appErrors.ErrDuplicateChild, http.StatusConflict},
		{appErrors.ErrStoreTimeout, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.err.Code, func(t *testing.T) {
			handler := NewReservationHandler(&reservationServiceMock{err: tc.err})
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(`{}`))
			c.Request.Header.Set("Content-Type", "application/json")

			handler.Submit(c)
			require.Equal(t, tc.status, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.err.Code, env.Error.Code)
		})
	}
}

func TestReservationHandlerSubmitMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reservationServiceMock{}
	handler := NewReservationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(`{"email":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastSubmit.Email)
}
