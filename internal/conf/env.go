// env.go - Environment variable configuration for geocheckin
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "GEOCHECKIN"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "GEOCHECKIN_DEBUG", validateEnvBool},

		// HTTP server
		{"server.listen", "GEOCHECKIN_SERVER_LISTEN", nil},
		{"server.readtimeout", "GEOCHECKIN_SERVER_READTIMEOUT", validateEnvDuration},
		{"server.writetimeout", "GEOCHECKIN_SERVER_WRITETIMEOUT", validateEnvDuration},

		// Database
		{"database.type", "GEOCHECKIN_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "GEOCHECKIN_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.host", "GEOCHECKIN_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "GEOCHECKIN_DATABASE_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "GEOCHECKIN_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "GEOCHECKIN_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "GEOCHECKIN_DATABASE_MYSQL_DATABASE", nil},
		{"database.postgres.host", "GEOCHECKIN_DATABASE_POSTGRES_HOST", nil},
		{"database.postgres.port", "GEOCHECKIN_DATABASE_POSTGRES_PORT", validateEnvPort},
		{"database.postgres.username", "GEOCHECKIN_DATABASE_POSTGRES_USERNAME", nil},
		{"database.postgres.password", "GEOCHECKIN_DATABASE_POSTGRES_PASSWORD", nil},
		{"database.postgres.database", "GEOCHECKIN_DATABASE_POSTGRES_DATABASE", nil},
		{"database.postgres.sslmode", "GEOCHECKIN_DATABASE_POSTGRES_SSLMODE", nil},

		// Geofence
		{"geofence.defaultradius", "GEOCHECKIN_GEOFENCE_DEFAULTRADIUS", validateEnvPositiveFloat},
		{"geofence.preciseaccuracy", "GEOCHECKIN_GEOFENCE_PRECISEACCURACY", validateEnvPositiveFloat},
		{"geofence.degradedaccuracy", "GEOCHECKIN_GEOFENCE_DEGRADEDACCURACY", validateEnvPositiveFloat},
		{"geofence.maxreadingage", "GEOCHECKIN_GEOFENCE_MAXREADINGAGE", validateEnvDuration},
		{"session.maxspeedkmh", "GEOCHECKIN_SESSION_MAXSPEEDKMH", validateEnvPositiveFloat},
		{"registry.cachettl", "GEOCHECKIN_REGISTRY_CACHETTL", validateEnvDuration},

		// Rate limiting
		{"ratelimit.enabled", "GEOCHECKIN_RATELIMIT_ENABLED", validateEnvBool},
		{"ratelimit.rps", "GEOCHECKIN_RATELIMIT_RPS", validateEnvPositiveFloat},
		{"ratelimit.burst", "GEOCHECKIN_RATELIMIT_BURST", validateEnvPositiveInt},

		// MQTT
		{"mqtt.enabled", "GEOCHECKIN_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "GEOCHECKIN_MQTT_BROKER", nil},
		{"mqtt.clientid", "GEOCHECKIN_MQTT_CLIENTID", nil},
		{"mqtt.username", "GEOCHECKIN_MQTT_USERNAME", nil},
		{"mqtt.password", "GEOCHECKIN_MQTT_PASSWORD", nil},
		{"mqtt.topic", "GEOCHECKIN_MQTT_TOPIC", nil},

		// Telemetry
		{"telemetry.enabled", "GEOCHECKIN_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.dsn", "GEOCHECKIN_TELEMETRY_DSN", nil},
		{"telemetry.environment", "GEOCHECKIN_TELEMETRY_ENVIRONMENT", nil},

		// Logging
		{"logging.defaultlevel", "GEOCHECKIN_LOGGING_DEFAULTLEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration like 30s or 5m")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port between 1 and 65535")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(value) {
	case DatabaseSQLite, DatabaseMySQL, DatabasePostgres:
		return nil
	}
	return fmt.Errorf("must be one of sqlite, mysql, postgres")
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}
