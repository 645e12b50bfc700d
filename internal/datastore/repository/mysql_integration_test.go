//go:build integration

package repository

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/datastore"
)

// setupMySQL starts a MySQL container and returns a migrated database.
func setupMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("geocheckin"),
		tcmysql.WithUsername("geocheckin"),
		tcmysql.WithPassword("geocheckin"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	manager, err := datastore.NewMySQLManager(&conf.MySQLSettings{
		Host:     host,
		Port:     port.Port(),
		Username: "geocheckin",
		Password: "geocheckin",
		Database: "geocheckin",
	}, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, manager.Initialize())
	t.Cleanup(func() { _ = manager.Close() })

	return manager.DB()
}

func TestMySQL_CheckInLatch(t *testing.T) {
	db := setupMySQL(t)
	repo := NewCheckInRepository(db, nil)
	ctx := t.Context()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := range attempts {
		wg.Go(func() {
			rec := newTestRecord(fmt.Sprintf("in-%d", i), "shift-1", checkin.TypeCheckIn, testEpoch.Add(time.Duration(i)*time.Second))
			err := repo.AppendCheckIn(ctx, rec)
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, checkin.ErrDuplicateCheckIn)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), succeeded.Load())

	open, err := repo.OpenCheckInID(ctx, "shift-1")
	require.NoError(t, err)
	require.NotEmpty(t, open)

	var closed atomic.Int32
	for i := range 4 {
		wg.Go(func() {
			out := newTestRecord(fmt.Sprintf("out-%d", i), "shift-1", checkin.TypeCheckOut, testEpoch.Add(8*time.Hour))
			err := repo.AppendCheckOut(ctx, out)
			if err == nil {
				closed.Add(1)
				assert.Equal(t, open, out.PairedCheckInID)
				return
			}
			assert.ErrorIs(t, err, checkin.ErrOrphanCheckOut)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), closed.Load())

	records, err := repo.ListRecords(ctx, "shift-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
