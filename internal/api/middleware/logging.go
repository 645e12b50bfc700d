// Package middleware provides HTTP middleware components for the geocheckin server.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fleetops/geocheckin/internal/logger"
)

// NewRequestLogger creates a request logging middleware using RequestLoggerWithConfig.
// Requests are logged at DEBUG unless verbose is set; server errors always log at WARN.
func NewRequestLogger(log logger.Logger, verbose bool) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, verbose, nil)
}

// NewRequestLoggerWithSkipper creates a request logging middleware with a custom skipper.
func NewRequestLoggerWithSkipper(log logger.Logger, verbose bool, skipper middleware.Skipper) echo.MiddlewareFunc {
	level := logger.LogLevelDebug
	if verbose {
		level = logger.LogLevelInfo
	}

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipper,
		HandleError:  true,
		LogStatus:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.String("route", v.RoutePath),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Duration("latency", v.Latency),
			}
			if v.RequestID != "" {
				fields = append(fields, logger.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			lvl := level
			if v.Status >= http.StatusInternalServerError {
				lvl = logger.LogLevelWarn
			}
			log.WithContext(c.Request().Context()).Log(lvl, "request", fields...)
			return nil
		},
	})
}
