// Package conf loads geocheckin settings from YAML, environment variables and flags.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/logger"
)

// Database backends
const (
	DatabaseSQLite   = "sqlite"
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
)

// ServerSettings contains HTTP listener settings
type ServerSettings struct {
	Listen       string        // address to listen on, e.g. ":8080"
	ReadTimeout  time.Duration // maximum duration for reading a request
	WriteTimeout time.Duration // maximum duration for writing a response
	Debug        bool          // verbose request logging
}

// SQLiteSettings contains settings for the embedded database
type SQLiteSettings struct {
	Path string // database file path
}

// MySQLSettings contains MySQL connection settings
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// PostgresSettings contains PostgreSQL connection settings
type PostgresSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	SSLMode  string
}

// DatabaseSettings selects and configures the audit store backend
type DatabaseSettings struct {
	Type               string // sqlite, mysql or postgres
	SQLite             SQLiteSettings
	MySQL              MySQLSettings
	Postgres           PostgresSettings
	SlowQueryThreshold time.Duration // queries slower than this are logged at WARN
}

// GeofenceSettings contains check-in validation defaults
type GeofenceSettings struct {
	DefaultRadius    float64       // radius in meters applied to sites without one
	PreciseAccuracy  float64       // readings at or below this accuracy are "precise"
	DegradedAccuracy float64       // readings at or below this accuracy are "degraded"
	MaxReadingAge    time.Duration // readings older than this are unavailable, 0 disables the check
}

// SessionSettings contains work session derivation settings
type SessionSettings struct {
	MaxSpeedKmh float64 // average speed above which consecutive readings are flagged
}

// RegistrySettings contains site registry cache settings
type RegistrySettings struct {
	CacheTTL time.Duration // how long resolved sites are cached, 0 disables caching
}

// RateLimitSettings contains per-client request limiting settings
type RateLimitSettings struct {
	Enabled bool
	RPS     float64 // sustained requests per second per client
	Burst   int     // bucket size
}

// MQTTSettings contains settings for check-in event fan-out
type MQTTSettings struct {
	Enabled  bool
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Topic    string // base topic, records go to <topic>/<site>/<type>
	Retain   bool
}

// TelemetrySettings contains error reporting settings
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// Settings is the root of the configuration tree
type Settings struct {
	Debug     bool
	Server    ServerSettings
	Database  DatabaseSettings
	Geofence  GeofenceSettings
	Session   SessionSettings
	Registry  RegistrySettings
	RateLimit RateLimitSettings
	MQTT      MQTTSettings
	Telemetry TelemetrySettings
	Logging   logger.LoggingConfig
}

// NewViper returns a viper instance with defaults applied.
// Commands bind their flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)
	return v
}

// Load reads configuration from configFile, or from the default search paths when
// configFile is empty. A missing config file is not an error; defaults apply.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if v == nil {
		v = NewViper()
	}

	// .env is a convenience for local runs, real deployments use the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.New(fmt.Errorf("loading .env: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Op("bind-env").
			Build()
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return settings, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("reading config file %s: %w", configFile, err)).
				Category(errors.CategoryConfiguration).
				Op("read-config").
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range DefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Category(errors.CategoryConfiguration).
			Op("read-config").
			Build()
	}
	return nil
}

// DefaultConfigPaths returns the directories searched for config.yaml, in order.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "geocheckin"))
	}
	return append(paths, "/etc/geocheckin")
}
