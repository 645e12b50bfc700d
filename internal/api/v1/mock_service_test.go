package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/geocheckin/internal/attendance"
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// MockService implements AttendanceService for handler tests
type MockService struct {
	mock.Mock
}

func (m *MockService) CheckIn(ctx context.Context, a attendance.Attempt) (*checkin.Record, error) {
	args := m.Called(ctx, a)
	rec, _ := args.Get(0).(*checkin.Record)
	return rec, args.Error(1)
}

func (m *MockService) CheckOut(ctx context.Context, a attendance.Attempt) (*checkin.Record, error) {
	args := m.Called(ctx, a)
	rec, _ := args.Get(0).(*checkin.Record)
	return rec, args.Error(1)
}

func (m *MockService) GetSession(ctx context.Context, shiftID string) (*session.WorkSession, error) {
	args := m.Called(ctx, shiftID)
	ws, _ := args.Get(0).(*session.WorkSession)
	return ws, args.Error(1)
}

func (m *MockService) ListRecords(ctx context.Context, shiftID string) ([]checkin.Record, error) {
	args := m.Called(ctx, shiftID)
	recs, _ := args.Get(0).([]checkin.Record)
	return recs, args.Error(1)
}

func (m *MockService) Site(ctx context.Context, siteID string) (sites.Site, error) {
	args := m.Called(ctx, siteID)
	site, _ := args.Get(0).(sites.Site)
	return site, args.Error(1)
}

// pingerFunc adapts a function to Pinger
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var errPingFailed = errors.New("dial tcp: connection refused")

var testTime = time.Date(2026, 3, 2, 8, 5, 0, 0, time.UTC)

// setupTestController builds a controller on a fresh echo instance. Requests are
// dispatched through e.ServeHTTP so routing, binding and the error handler all run.
func setupTestController(t *testing.T, db Pinger) (*echo.Echo, *MockService, *Controller) {
	t.Helper()

	e := echo.New()
	svc := new(MockService)
	c, err := New(e, svc, db, WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)), WithVersion("test"))
	require.NoError(t, err)
	e.HTTPErrorHandler = c.HTTPErrorHandler

	return e, svc, c
}

func newJSONRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	return doRequest(e, newJSONRequest(method, target, body))
}

func serveGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	return serve(e, http.MethodGet, target, "")
}

func sampleRecord(id string, typ checkin.RecordType) *checkin.Record {
	return &checkin.Record{
		ID:        id,
		SubjectID: "emp-7",
		SiteID:    "site-a",
		ShiftID:   "shift-1",
		Reading: checkin.PositionReading{
			Point:          geo.Point{Latitude: 40, Longitude: -74},
			AccuracyMeters: 8,
			CapturedAt:     testTime,
		},
		Verdict: checkin.Verdict{
			DistanceMeters: 3.2,
			WithinGeofence: true,
			AccuracyClass:  checkin.AccuracyPrecise,
		},
		Type:      typ,
		CreatedAt: testTime,
	}
}
