package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/sites"
)

func TestSiteRepository_UpsertAndGet(t *testing.T) {
	t.Parallel()
	repo := NewSiteRepository(setupTestDB(t), nil)
	ctx := t.Context()

	site := &sites.Site{
		ID:           "site-a",
		Name:         "Warehouse A",
		Center:       geo.Point{Latitude: 40, Longitude: -74},
		RadiusMeters: 75,
		Active:       true,
	}
	require.NoError(t, repo.UpsertSite(ctx, site))
	assert.False(t, site.UpdatedAt.IsZero())

	got, err := repo.GetSite(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse A", got.Name)
	assert.Equal(t, geo.Point{Latitude: 40, Longitude: -74}, got.Center)
	assert.InDelta(t, 75.0, got.RadiusMeters, 0)
	assert.True(t, got.Active)
}

func TestSiteRepository_UpsertReplacesAllColumns(t *testing.T) {
	t.Parallel()
	repo := NewSiteRepository(setupTestDB(t), nil)
	ctx := t.Context()

	require.NoError(t, repo.UpsertSite(ctx, &sites.Site{
		ID: "site-a", Name: "Old", Center: geo.Point{Latitude: 1, Longitude: 1}, RadiusMeters: 10, Active: true,
	}))
	// Deactivation must be persisted even though false is the zero value
	require.NoError(t, repo.UpsertSite(ctx, &sites.Site{
		ID: "site-a", Name: "New", Center: geo.Point{Latitude: 2, Longitude: 2}, RadiusMeters: 0, Active: false,
	}))

	got, err := repo.GetSite(ctx, "site-a")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, geo.Point{Latitude: 2, Longitude: 2}, got.Center)
	assert.Zero(t, got.RadiusMeters)
	assert.False(t, got.Active)

	all, err := repo.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSiteRepository_GetUnknown(t *testing.T) {
	t.Parallel()
	repo := NewSiteRepository(setupTestDB(t), nil)

	_, err := repo.GetSite(t.Context(), "missing")
	require.Error(t, err)
	require.ErrorIs(t, err, sites.ErrSiteNotFound)
	assert.True(t, errors.IsNotFound(err))
	assert.NotErrorIs(t, err, checkin.ErrStorageUnavailable)
}

func TestSiteRepository_UpsertRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	repo := NewSiteRepository(setupTestDB(t), nil)

	tests := []struct {
		name string
		site *sites.Site
	}{
		{"nil", nil},
		{"missing id", &sites.Site{Center: geo.Point{Latitude: 1, Longitude: 1}}},
		{"bad latitude", &sites.Site{ID: "x", Center: geo.Point{Latitude: 91, Longitude: 1}}},
		{"negative radius", &sites.Site{ID: "x", Center: geo.Point{Latitude: 1, Longitude: 1}, RadiusMeters: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.UpsertSite(t.Context(), tt.site)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSiteRepository_ClosedDatabase(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewSiteRepository(db, nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.GetSite(t.Context(), "site-a")
	require.ErrorIs(t, err, checkin.ErrStorageUnavailable)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}
