// Package api provides the HTTP server for geocheckin.
// This package contains the server lifecycle and middleware stack while the JSON
// endpoints live in the v1 subpackage.
package api

import (
	"fmt"
	"time"

	"github.com/fleetops/geocheckin/internal/conf"
)

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultLimiterExpiry is how long an idle client's rate limiter is kept.
	DefaultLimiterExpiry = 3 * time.Minute
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled   bool
	RPS       float64       // sustained requests per second per client
	Burst     int           // bucket size
	ExpiresIn time.Duration // idle limiters are dropped after this long
}

// Config holds the HTTP server configuration.
type Config struct {
	Address string // host:port to listen on, e.g. ":8080"

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	// Limits
	BodyLimit string // Maximum request body size (e.g., "64K", "1M")
	RateLimit RateLimitConfig

	AllowedOrigins []string // CORS allowed origins

	Debug bool // Log every request at INFO instead of DEBUG
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       "64K",
		AllowedOrigins:  []string{"*"},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			RPS:       5,
			Burst:     10,
			ExpiresIn: DefaultLimiterExpiry,
		},
	}
}

// ConfigFromSettings creates a Config from the application settings.
// Zero durations in settings keep the defaults.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.Server.Listen != "" {
		cfg.Address = settings.Server.Listen
	}
	if settings.Server.ReadTimeout > 0 {
		cfg.ReadTimeout = settings.Server.ReadTimeout
	}
	if settings.Server.WriteTimeout > 0 {
		cfg.WriteTimeout = settings.Server.WriteTimeout
	}

	cfg.RateLimit.Enabled = settings.RateLimit.Enabled
	if settings.RateLimit.RPS > 0 {
		cfg.RateLimit.RPS = settings.RateLimit.RPS
	}
	if settings.RateLimit.Burst > 0 {
		cfg.RateLimit.Burst = settings.RateLimit.Burst
	}

	cfg.Debug = settings.Server.Debug || settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("listen address is required")
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	limit := "disabled"
	if c.RateLimit.Enabled {
		limit = fmt.Sprintf("%.1f rps, burst %d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	return fmt.Sprintf("Server Config: address=%s, rate_limit=%s, debug=%v",
		c.Address, limit, c.Debug)
}
