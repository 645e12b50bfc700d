// Package app wires geocheckin's components from settings. Commands build an
// App, use the pieces they need and Close it when done.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/geocheckin/internal/attendance"
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/datastore"
	"github.com/fleetops/geocheckin/internal/datastore/repository"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/mqtt"
	"github.com/fleetops/geocheckin/internal/observability"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
	"github.com/fleetops/geocheckin/internal/telemetry"
)

// telemetryFlushTimeout bounds the final Sentry flush on Close
const telemetryFlushTimeout = 2 * time.Second

// App holds the wired components
type App struct {
	Settings *conf.Settings
	Version  string
	Log      logger.Logger
	Metrics  *observability.Metrics

	DB      datastore.Manager
	Sites   repository.SiteRepository
	Shifts  repository.ShiftRepository
	Records repository.CheckInRepository

	Registry *sites.CachedRegistry
	Recorder *checkin.Recorder
	Sessions *session.Manager
	Service  *attendance.Service

	// MQTT is nil unless fan-out is enabled
	MQTT      mqtt.Client
	Telemetry *telemetry.Reporter
}

// New opens the database, migrates the schema and builds the service graph.
// Nothing is contacted over the network except the database; call
// ConnectMQTT before serving when fan-out is enabled.
func New(settings *conf.Settings, version string, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	a := &App{Settings: settings, Version: version, Log: log}

	reporter, err := telemetry.NewReporter(&settings.Telemetry, version)
	if err != nil {
		return nil, err
	}
	a.Telemetry = reporter
	if reporter.IsEnabled() {
		errors.SetTelemetryReporter(reporter)
		log.Info("error telemetry enabled", logger.String("environment", settings.Telemetry.Environment))
	}

	a.Metrics, err = observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a.DB, err = datastore.Open(&settings.Database, log.Module("datastore"))
	if err != nil {
		return nil, err
	}
	if err := a.DB.Initialize(); err != nil {
		_ = a.DB.Close()
		return nil, err
	}
	log.Info("database ready",
		logger.String("type", a.DB.Dialect()),
		logger.String("location", a.DB.Path()))

	gdb := a.DB.DB()
	a.Sites = repository.NewSiteRepository(gdb, a.Metrics.Datastore)
	a.Shifts = repository.NewShiftRepository(gdb, a.Metrics.Datastore)
	a.Records = repository.NewCheckInRepository(gdb, a.Metrics.Datastore)

	geofence := settings.Geofence
	a.Registry = sites.NewCachedRegistry(a.Sites, sites.RegistryConfig{
		DefaultRadius: geofence.DefaultRadius,
		CacheTTL:      settings.Registry.CacheTTL,
	}, a.Metrics.CheckIn, log.Module("sites"))

	validator := checkin.NewValidator(checkin.Thresholds{
		PreciseMeters:  geofence.PreciseAccuracy,
		DegradedMeters: geofence.DegradedAccuracy,
	})
	a.Recorder = checkin.NewRecorder(a.Registry, validator, a.Records,
		checkin.WithMetrics(a.Metrics.CheckIn),
		checkin.WithLogger(log.Module("checkin")))

	a.Sessions = session.NewManager(a.Shifts, a.Records, session.Config{
		MaxSpeedKmh:   settings.Session.MaxSpeedKmh,
		MaxReadingAge: geofence.MaxReadingAge,
	}, a.Metrics.CheckIn, log.Module("session"))

	var publisher attendance.Publisher
	if settings.MQTT.Enabled {
		a.MQTT, err = mqtt.NewClient(mqtt.ConfigFromSettings(&settings.MQTT), a.Metrics.MQTT, log.Module("mqtt"))
		if err != nil {
			_ = a.DB.Close()
			return nil, err
		}
		publisher = mqtt.NewRecordPublisher(a.MQTT, settings.MQTT.Topic, a.Metrics.MQTT)
	}

	a.Service = attendance.NewService(a.Shifts, a.Registry, a.Recorder, a.Sessions, publisher,
		attendance.Config{MaxReadingAge: geofence.MaxReadingAge},
		log.Module("attendance"))

	return a, nil
}

// ConnectMQTT connects the fan-out client. It is a no-op when fan-out is
// disabled. A failed connect is returned; records are still committed while
// the broker is unreachable, only their publication fails.
func (a *App) ConnectMQTT(ctx context.Context) error {
	if a.MQTT == nil {
		return nil
	}
	return a.MQTT.Connect(ctx)
}

// Close disconnects MQTT, flushes telemetry and closes the database.
func (a *App) Close() error {
	if a.MQTT != nil {
		a.MQTT.Disconnect()
	}
	if a.Telemetry.IsEnabled() {
		a.Telemetry.Flush(telemetryFlushTimeout)
		errors.SetTelemetryReporter(nil)
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
