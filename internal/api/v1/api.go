// Package api implements the v1 JSON endpoints: check-in and check-out commands,
// session and audit queries, site lookup and health.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetops/geocheckin/internal/attendance"
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// BasePath is the route prefix for all v1 endpoints.
const BasePath = "/api/v1"

// healthPingTimeout bounds the database ping in the health check.
const healthPingTimeout = 2 * time.Second

// AttendanceService is the façade the handlers call.
type AttendanceService interface {
	CheckIn(ctx context.Context, a attendance.Attempt) (*checkin.Record, error)
	CheckOut(ctx context.Context, a attendance.Attempt) (*checkin.Record, error)
	GetSession(ctx context.Context, shiftID string) (*session.WorkSession, error)
	ListRecords(ctx context.Context, shiftID string) ([]checkin.Record, error)
	Site(ctx context.Context, siteID string) (sites.Site, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller manages the v1 API routes and handlers.
type Controller struct {
	Echo    *echo.Echo
	Group   *echo.Group
	Service AttendanceService
	DB      Pinger

	log       logger.Logger
	metrics   *metrics.HTTPMetrics
	version   string
	startTime time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger for API operations.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithMetrics sets the HTTP metrics used to count error responses.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithVersion sets the version reported by the health check.
func WithVersion(version string) Option {
	return func(c *Controller) {
		c.version = version
	}
}

// New creates the v1 controller and registers its routes on e.
func New(e *echo.Echo, svc AttendanceService, db Pinger, opts ...Option) (*Controller, error) {
	if e == nil {
		return nil, fmt.Errorf("echo instance is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("attendance service is required")
	}

	c := &Controller{
		Echo:      e,
		Service:   svc,
		DB:        db,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}

	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	c.Group = e.Group(BasePath)
	c.initRoutes()

	return c, nil
}

// initRoutes registers all v1 routes.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"shift routes", c.initShiftRoutes},
		{"site routes", c.initSiteRoutes},
	}

	for _, initializer := range routeInitializers {
		initializer.fn()
		c.log.Debug("routes initialized", logger.String("group", initializer.name))
	}
}

func (c *Controller) initShiftRoutes() {
	shifts := c.Group.Group("/shifts/:shiftId")
	shifts.POST("/check-in", c.CheckIn)
	shifts.POST("/check-out", c.CheckOut)
	shifts.GET("/session", c.GetSession)
	shifts.GET("/records", c.ListRecords)
}

func (c *Controller) initSiteRoutes() {
	c.Group.GET("/sites/:siteId", c.GetSite)
}

// HealthCheck reports service status and database reachability. An unreachable
// database turns the response into 503 so that load balancers drain the node.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	response := map[string]any{
		"status":          "healthy",
		"version":         c.version,
		"database_status": "connected",
		"uptime":          uptime.String(),
		"uptime_seconds":  uptime.Seconds(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if c.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthPingTimeout)
		defer cancel()

		if err := c.DB.Ping(pingCtx); err != nil {
			response["status"] = "degraded"
			response["database_status"] = "disconnected"
			response["database_error"] = err.Error()
			status = http.StatusServiceUnavailable

			c.log.WithContext(ctx.Request().Context()).Warn("health check database ping failed", logger.Error(err))
		}
	}

	return ctx.JSON(status, response)
}
