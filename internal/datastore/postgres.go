package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/errors"
)

// PostgresManager handles a PostgreSQL database.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// NewPostgresManager connects to PostgreSQL.
func NewPostgresManager(cfg *conf.PostgresSettings, gormCfg *gorm.Config) (*PostgresManager, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open PostgreSQL database: %w", err)).
			Category(errors.CategoryDatabase).
			Context("host", cfg.Host).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresManager{
		db:       db,
		location: fmt.Sprintf("%s:%s/%s", cfg.Host, cfg.Port, cfg.Database),
	}, nil
}

// Initialize creates the schema.
func (m *PostgresManager) Initialize() error {
	return autoMigrate(m.db)
}

// DB returns the underlying GORM database.
func (m *PostgresManager) DB() *gorm.DB {
	return m.db
}

// Path returns host:port/database.
func (m *PostgresManager) Path() string {
	return m.location
}

// Dialect returns "postgres".
func (m *PostgresManager) Dialect() string {
	return conf.DatabasePostgres
}

// Ping verifies the database is reachable.
func (m *PostgresManager) Ping(ctx context.Context) error {
	return ping(ctx, m.db)
}

// Close closes the database connection.
func (m *PostgresManager) Close() error {
	return closeDB(m.db)
}
