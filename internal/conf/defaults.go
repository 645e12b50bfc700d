// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Geofence and session defaults. The radius and accuracy thresholds are the
// values site administration has always used; they are settings, not invariants.
const (
	DefaultRadiusMeters           = 50.0
	DefaultPreciseAccuracyMeters  = 20.0
	DefaultDegradedAccuracyMeters = 50.0
	DefaultMaxSpeedKmh            = 200.0
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 30*time.Second)
	v.SetDefault("server.debug", false)

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.sqlite.path", "geocheckin.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "geocheckin")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", "5432")
	v.SetDefault("database.postgres.username", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "geocheckin")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	v.SetDefault("geofence.defaultradius", DefaultRadiusMeters)
	v.SetDefault("geofence.preciseaccuracy", DefaultPreciseAccuracyMeters)
	v.SetDefault("geofence.degradedaccuracy", DefaultDegradedAccuracyMeters)
	v.SetDefault("geofence.maxreadingage", time.Duration(0))

	v.SetDefault("session.maxspeedkmh", DefaultMaxSpeedKmh)

	v.SetDefault("registry.cachettl", 5*time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "geocheckin")
	v.SetDefault("mqtt.topic", "geocheckin/checkins")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")
	v.SetDefault("telemetry.environment", "production")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/geocheckin.log")
	v.SetDefault("logging.fileoutput.level", "info")
}
