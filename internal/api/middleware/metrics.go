package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// unmatchedRoute labels requests that did not match any route, so arbitrary
// URLs cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// NewMetrics records request count, latency and in-flight requests.
// Requests are labeled by route template, not by raw path.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			m.InFlight(1)
			defer m.InFlight(-1)

			start := time.Now()
			err := next(c)

			m.RecordHTTPRequest(c.Request().Method, routeLabel(c), responseStatus(c, err), time.Since(start).Seconds())
			return err
		}
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return unmatchedRoute
}

// responseStatus returns the status the client will see. Errors returned up the
// chain have not been written yet, so their code wins over the recorder.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}
