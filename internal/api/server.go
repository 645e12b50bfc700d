package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/fleetops/geocheckin/internal/api/middleware"
	v1 "github.com/fleetops/geocheckin/internal/api/v1"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// metricsPath is where Prometheus scrapes; it bypasses rate limiting.
const metricsPath = "/metrics"

// Server is the HTTP server for geocheckin.
// It manages the Echo instance, middleware, and all HTTP routes.
type Server struct {
	echo   *echo.Echo
	config *Config
	log    logger.Logger

	// Dependencies
	service v1.AttendanceService
	db      v1.Pinger
	metrics *observability.Metrics
	version string

	limiterStore  *mw.LimiterStore
	apiController *v1.Controller

	errCh     chan error
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetrics sets the observability metrics and exposes them on /metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDatabase sets the database checked by the health endpoint.
func WithDatabase(db v1.Pinger) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a new HTTP server serving svc.
func New(config *Config, svc v1.AttendanceService, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:    config,
		service:   svc,
		errCh:     make(chan error, 1),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}

	// Initialize Echo
	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true

	// Configure Echo server timeouts
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address),
		logger.Bool("rate_limit", config.RateLimit.Enabled),
		logger.Bool("debug", config.Debug))

	return s, nil
}

func (s *Server) httpMetrics() *metrics.HTTPMetrics {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.HTTP
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.log, s.config.Debug))
	s.echo.Use(mw.NewMetrics(s.httpMetrics()))

	s.echo.Use(mw.NewCORS(mw.SecurityConfig{AllowedOrigins: s.config.AllowedOrigins}))
	s.echo.Use(mw.NewSecureHeaders())
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))

	if s.config.RateLimit.Enabled {
		s.limiterStore = mw.NewLimiterStore(s.config.RateLimit.RPS, s.config.RateLimit.Burst, s.config.RateLimit.ExpiresIn)
		s.echo.Use(mw.NewRateLimiter(s.limiterStore, s.httpMetrics(), func(c echo.Context) bool {
			return c.Path() == metricsPath
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	controller, err := v1.New(s.echo, s.service, s.db,
		v1.WithLogger(s.log),
		v1.WithMetrics(s.httpMetrics()),
		v1.WithVersion(s.version))
	if err != nil {
		return fmt.Errorf("failed to initialize API v1: %w", err)
	}
	s.apiController = controller
	s.echo.HTTPErrorHandler = controller.HTTPErrorHandler

	if s.metrics != nil {
		s.echo.GET(metricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	s.log.Info("Routes initialized",
		logger.String("api_version", "v1"),
		logger.Bool("metrics", s.metrics != nil))

	return nil
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Serve errors are reported by Err. Use Shutdown to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.log.Error("Server error", logger.Error(err))
			s.errCh <- err
		}
	}()

	s.log.Info("HTTP server starting", logger.String("address", s.config.Address))
}

// startBlocking begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	err := s.echo.Start(s.config.Address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Err returns a channel that receives the error if serving stops unexpectedly,
// e.g. when the listen address is taken.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// StartWithGracefulShutdown starts the server and handles graceful shutdown on
// SIGINT/SIGTERM or when ctx is canceled.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	s.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		s.log.Info("Shutdown signal received, initiating graceful shutdown")
	case err := <-s.errCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server, waiting up to ShutdownTimeout for
// in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("Server shutdown complete",
		logger.Duration("uptime", time.Since(s.startTime)))

	return nil
}

// APIController returns the v1 API controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
