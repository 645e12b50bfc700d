// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateGeofenceSettings(&settings.Geofence); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Session.MaxSpeedKmh <= 0 {
		ve.Errors = append(ve.Errors, "session.maxspeedkmh must be greater than 0")
	}

	if settings.Registry.CacheTTL < 0 {
		ve.Errors = append(ve.Errors, "registry.cachettl must not be negative")
	}

	if settings.RateLimit.Enabled && (settings.RateLimit.RPS <= 0 || settings.RateLimit.Burst <= 0) {
		ve.Errors = append(ve.Errors, "ratelimit.rps and ratelimit.burst must be greater than 0 when rate limiting is enabled")
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN == "" {
		ve.Errors = append(ve.Errors, "telemetry.dsn is required when telemetry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}

	return nil
}

func validateServerSettings(s *ServerSettings) error {
	if s.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return fmt.Errorf("server.listen %q is not a host:port address: %w", s.Listen, err)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	return nil
}

func validateDatabaseSettings(s *DatabaseSettings) error {
	s.Type = strings.ToLower(s.Type)

	switch s.Type {
	case DatabaseSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for sqlite")
		}
	case DatabaseMySQL:
		if s.MySQL.Host == "" || s.MySQL.Database == "" || s.MySQL.Username == "" {
			return fmt.Errorf("database.mysql host, database and username are required for mysql")
		}
	case DatabasePostgres:
		if s.Postgres.Host == "" || s.Postgres.Database == "" || s.Postgres.Username == "" {
			return fmt.Errorf("database.postgres host, database and username are required for postgres")
		}
	default:
		return fmt.Errorf("database.type %q is not supported, use sqlite, mysql or postgres", s.Type)
	}

	if s.SlowQueryThreshold < 0 {
		return fmt.Errorf("database.slowquerythreshold must not be negative")
	}
	return nil
}

func validateGeofenceSettings(s *GeofenceSettings) error {
	var errs []string

	if s.DefaultRadius <= 0 {
		errs = append(errs, "geofence.defaultradius must be greater than 0")
	}
	if s.PreciseAccuracy <= 0 {
		errs = append(errs, "geofence.preciseaccuracy must be greater than 0")
	}
	if s.DegradedAccuracy < s.PreciseAccuracy {
		errs = append(errs, "geofence.degradedaccuracy must not be below geofence.preciseaccuracy")
	}
	if s.MaxReadingAge < 0 {
		errs = append(errs, "geofence.maxreadingage must not be negative")
	}
	if s.MaxReadingAge > 0 && s.MaxReadingAge < time.Second {
		errs = append(errs, "geofence.maxreadingage below 1s rejects almost every reading")
	}

	if len(errs) > 0 {
		return fmt.Errorf("geofence settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMQTTSettings(s *MQTTSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if s.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
	}
	if strings.ContainsAny(s.Topic, "#+") {
		return fmt.Errorf("mqtt.topic must not contain wildcards")
	}
	return nil
}
