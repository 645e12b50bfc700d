// Package datastore opens the audit database and migrates its schema.
//
// The repository subpackage implements the stores the domain packages depend on;
// entities holds the GORM models. Three backends are supported: SQLite for single
// node installs, MySQL and PostgreSQL for shared deployments.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/datastore/entities"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/logger"
)

// Manager defines the interface for database lifecycle operations.
type Manager interface {
	// Initialize creates or migrates the schema.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database otherwise).
	Path() string
	// Dialect returns the backend name: sqlite, mysql or postgres.
	Dialect() string
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
	// Close closes the database connection.
	Close() error
}

// Open creates a Manager for the configured backend. SQL statements are logged
// through log at TRACE; slow statements at WARN.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	gormCfg := newGormConfig(log, settings.SlowQueryThreshold)

	switch settings.Type {
	case conf.DatabaseSQLite, "":
		return NewSQLiteManager(settings.SQLite.Path, gormCfg)
	case conf.DatabaseMySQL:
		return NewMySQLManager(&settings.MySQL, gormCfg)
	case conf.DatabasePostgres:
		return NewPostgresManager(&settings.Postgres, gormCfg)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// newGormConfig returns the GORM settings shared by all backends. TranslateError
// maps driver specific unique violations to gorm.ErrDuplicatedKey, which the
// repositories rely on to detect a second open check-in.
func newGormConfig(log logger.Logger, slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, slowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// autoMigrate creates or updates all tables.
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.Site{},
		&entities.Shift{},
		&entities.CheckInRecord{},
		&entities.OpenCheckIn{},
	)
	if err != nil {
		return errors.New(fmt.Errorf("failed to migrate schema: %w", err)).
			Category(errors.CategoryDatabase).
			Op("auto_migrate").
			Build()
	}
	return nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}
