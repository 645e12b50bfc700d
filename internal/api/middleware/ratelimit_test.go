package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

func TestLimiterStore_BurstThenRefill(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store := NewLimiterStore(1, 2, time.Minute)
	store.now = func() time.Time { return now }

	for i := range 2 {
		ok, err := store.Allow("10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i)
	}
	ok, _ := store.Allow("10.0.0.1")
	assert.False(t, ok, "burst exhausted")

	// Other clients have their own bucket
	ok, _ = store.Allow("10.0.0.2")
	assert.True(t, ok)

	now = now.Add(time.Second)
	ok, _ = store.Allow("10.0.0.1")
	assert.True(t, ok, "one token refilled after a second")

	assert.Equal(t, 2, store.Len())
}

func TestNewRateLimiter_RejectsWith429AndCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	store := NewLimiterStore(0.001, 1, time.Minute)
	e := echo.New()
	e.Use(NewRateLimiter(store, m, func(c echo.Context) bool { return c.Path() == "/metrics" }))
	e.GET("/api/v1/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("/api/v1/health"))
	assert.Equal(t, http.StatusTooManyRequests, get("/api/v1/health"))
	assert.Equal(t, http.StatusOK, get("/metrics"), "skipped paths are never limited")
	assert.Equal(t, http.StatusOK, get("/metrics"))

	expected := `
# HELP http_rate_limited_total Total number of requests rejected by the per-client rate limiter
# TYPE http_rate_limited_total counter
http_rate_limited_total{path="/api/v1/health"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_rate_limited_total"))
}
