package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	v1 "github.com/fleetops/geocheckin/internal/api/v1"
	"github.com/fleetops/geocheckin/internal/attendance"
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/datastore"
	"github.com/fleetops/geocheckin/internal/datastore/repository"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// newTestServer wires the full stack over a temporary SQLite database. The
// shift is scheduled around the current time so sessions stay open.
func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()

	manager, err := datastore.NewSQLiteManager(filepath.Join(t.TempDir(), "server.db"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, manager.Initialize())
	t.Cleanup(func() { _ = manager.Close() })

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	db := manager.DB()
	siteRepo := repository.NewSiteRepository(db, m.Datastore)
	shiftRepo := repository.NewShiftRepository(db, m.Datastore)
	recordRepo := repository.NewCheckInRepository(db, m.Datastore)

	ctx := t.Context()
	require.NoError(t, siteRepo.UpsertSite(ctx, &sites.Site{
		ID: "site-a", Name: "Depot", Center: geo.Point{Latitude: 40, Longitude: -74}, RadiusMeters: 50, Active: true,
	}))
	now := time.Now().UTC()
	require.NoError(t, shiftRepo.UpsertShift(ctx, &session.Shift{
		ID: "shift-1", SubjectID: "emp-7", ScheduledStart: now.Add(-time.Hour), ScheduledEnd: now.Add(7 * time.Hour),
	}))

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	registry := sites.NewCachedRegistry(siteRepo, sites.RegistryConfig{}, m.CheckIn, log)
	recorder := checkin.NewRecorder(registry, checkin.NewValidator(checkin.DefaultThresholds()), recordRepo,
		checkin.WithMetrics(m.CheckIn), checkin.WithLogger(log))
	sessions := session.NewManager(shiftRepo, recordRepo, session.Config{}, m.CheckIn, log)
	svc := attendance.NewService(shiftRepo, registry, recorder, sessions, nil, attendance.Config{}, log)

	s, err := New(cfg, svc, WithLogger(log), WithMetrics(m), WithDatabase(manager), WithVersion("test"))
	require.NoError(t, err)
	return s
}

func noRateLimit() *Config {
	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false
	return cfg
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.7:40000"
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const insideBody = `{"siteId": "site-a", "position": {"latitude": 40.0001, "longitude": -74, "accuracy": 8}}`

func TestServer_FullShift(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, noRateLimit())

	rec := do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-in", insideBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	var in checkin.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &in))
	assert.Equal(t, "emp-7", in.SubjectID)
	assert.True(t, in.Verdict.WithinGeofence)
	assert.Equal(t, checkin.AccuracyPrecise, in.Verdict.AccuracyClass)

	rec = do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-in", insideBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	var dup v1.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.Equal(t, v1.CodeDuplicateCheckIn, dup.ErrorCode)
	assert.Equal(t, in.ID, dup.ExistingRecordID)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), dup.CorrelationID)

	rec = do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-out", insideBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out checkin.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, in.ID, out.PairedCheckInID)

	rec = do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-out", insideBody)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/shifts/shift-1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ws session.WorkSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ws))
	require.Len(t, ws.Pairs, 1)
	require.NotNil(t, ws.Pairs[0].CheckOut)
	assert.Equal(t, out.ID, ws.Pairs[0].CheckOut.ID)
	assert.False(t, ws.IsOpen())

	rec = do(s, http.MethodGet, "/api/v1/shifts/shift-1/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list v1.RecordsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	rec = do(s, http.MethodGet, "/api/v1/shifts/unknown/records", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/sites/site-a", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database_status":"connected"`)

	rec = do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/api/v1/shifts/:shiftId/check-in",status_code="2xx"} 1`)
	assert.Contains(t, rec.Body.String(), `http_request_errors_total{error_code="duplicate_check_in"`)
}

func TestServer_InvalidCoordinateIsBadRequest(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, noRateLimit())

	rec := do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-in",
		`{"siteId": "site-a", "position": {"latitude": 91, "longitude": -74, "accuracy": 8}}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), v1.CodeInvalidCoordinate)

	// Nothing was recorded, so a valid check-in still opens the shift
	rec = do(s, http.MethodPost, "/api/v1/shifts/shift-1/check-in", insideBody)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2, ExpiresIn: time.Minute}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/v1/health", "").Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/v1/health", "").Code)

	rec := do(s, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp v1.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, v1.CodeRateLimited, resp.ErrorCode)

	rec = do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code, "metrics scrapes bypass the limiter")
	assert.Contains(t, rec.Body.String(), `http_rate_limited_total{path="/api/v1/health"} 1`)
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	cfg := noRateLimit()
	cfg.Address = "127.0.0.1:0"
	cfg.ShutdownTimeout = 2 * time.Second
	s := newTestServer(t, cfg)

	s.Start()
	require.Eventually(t, func() bool { return s.Echo().ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Echo().ListenerAddr().String() + "/api/v1/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown())
	select {
	case err := <-s.Err():
		t.Fatalf("unexpected serve error: %v", err)
	default:
	}
}

func TestServer_StartReportsListenError(t *testing.T) {
	t.Parallel()

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })

	cfg := noRateLimit()
	cfg.Address = taken.Addr().String()
	s := newTestServer(t, cfg)

	s.Start()
	select {
	case err := <-s.Err():
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected listen error")
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{
		Server: conf.ServerSettings{Listen: ":9090", ReadTimeout: 5 * time.Second},
		RateLimit: conf.RateLimitSettings{
			Enabled: true,
			RPS:     2,
			Burst:   4,
		},
		Debug: true,
	}

	cfg := ConfigFromSettings(settings)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout, "zero keeps the default")
	assert.True(t, cfg.RateLimit.Enabled)
	assert.InDelta(t, 2.0, cfg.RateLimit.RPS, 0)
	assert.Equal(t, 4, cfg.RateLimit.Burst)
	assert.True(t, cfg.Debug)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty address", func(c *Config) { c.Address = "" }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }},
		{"zero rps", func(c *Config) { c.RateLimit.RPS = 0 }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			require.Error(t, cfg.Validate())

			_, err := New(cfg, nil)
			require.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{}
	assert.NoError(t, cfg.Validate(), "limits are ignored when disabled")
}
