package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/errors"
)

// SQLiteManager handles the embedded SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens or creates the database file at dbPath.
func NewSQLiteManager(dbPath string, cfg *gorm.Config) (*SQLiteManager, error) {
	if dbPath == "" {
		return nil, errors.Newf("sqlite database path is empty").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Category(errors.CategorySystem).
				Context("path", dir).
				Build()
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to open sqlite database: %w", err)).
			Category(errors.CategoryDatabase).
			Context("path", dbPath).
			Build()
	}

	// SQLite allows one writer; a single connection turns lock contention into pool waits
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLiteManager{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Initialize creates the schema.
func (m *SQLiteManager) Initialize() error {
	return autoMigrate(m.db)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Dialect returns "sqlite".
func (m *SQLiteManager) Dialect() string {
	return conf.DatabaseSQLite
}

// Ping verifies the database is reachable.
func (m *SQLiteManager) Ping(ctx context.Context) error {
	return ping(ctx, m.db)
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}
