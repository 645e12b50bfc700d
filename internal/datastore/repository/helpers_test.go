package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/datastore"
	"github.com/fleetops/geocheckin/internal/geo"
)

// setupTestDB opens a migrated SQLite database in a temporary directory.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	manager, err := datastore.NewSQLiteManager(
		filepath.Join(t.TempDir(), "geocheckin_test.db"),
		&gorm.Config{
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
			TranslateError: true,
		},
	)
	require.NoError(t, err)
	require.NoError(t, manager.Initialize())
	t.Cleanup(func() { _ = manager.Close() })

	return manager.DB()
}

var testEpoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestRecord(id, shiftID string, typ checkin.RecordType, at time.Time) *checkin.Record {
	return &checkin.Record{
		ID:        id,
		SubjectID: "emp-1",
		SiteID:    "site-a",
		ShiftID:   shiftID,
		Reading: checkin.PositionReading{
			Point:          geo.Point{Latitude: 40.0001, Longitude: -74.0001},
			AccuracyMeters: 12,
			CapturedAt:     at.Add(-2 * time.Second),
		},
		Verdict: checkin.Verdict{
			DistanceMeters: 14.1,
			WithinGeofence: true,
			AccuracyClass:  checkin.AccuracyPrecise,
		},
		Type:      typ,
		CreatedAt: at,
	}
}
