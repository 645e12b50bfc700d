package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// LimiterStore is an echo RateLimiterStore holding one token bucket per client.
// Buckets of clients that stay quiet for expiresIn are evicted.
type LimiterStore struct {
	mu       sync.Mutex
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewLimiterStore returns a store allowing rps sustained requests per client with
// bursts of up to burst requests.
func NewLimiterStore(rps float64, burst int, expiresIn time.Duration) *LimiterStore {
	return &LimiterStore{
		limiters: cache.New(expiresIn, 2*expiresIn),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *LimiterStore) Allow(identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := s.limiters.Get(identifier); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(s.limit, s.burst)
	}
	// Re-set on every hit so the expiry counts from the last request
	s.limiters.SetDefault(identifier, limiter)

	return limiter.AllowN(s.now(), 1), nil
}

// Len returns the number of tracked clients.
func (s *LimiterStore) Len() int {
	return s.limiters.ItemCount()
}

// NewRateLimiter rejects clients exceeding their bucket with 429. Clients are
// identified by RealIP. Requests matched by skipper are never limited.
func NewRateLimiter(store middleware.RateLimiterStore, m *metrics.HTTPMetrics, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return middleware.ErrExtractorError
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			m.RecordRateLimited(routeLabel(c))
			return middleware.ErrRateLimitExceeded
		},
	})
}
