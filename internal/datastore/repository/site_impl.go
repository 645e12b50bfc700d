package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleetops/geocheckin/internal/datastore/entities"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
	"github.com/fleetops/geocheckin/internal/sites"
)

// siteRepository implements SiteRepository.
type siteRepository struct {
	db      *gorm.DB
	metrics *metrics.DatastoreMetrics
}

// NewSiteRepository creates a new SiteRepository. m may be nil.
func NewSiteRepository(db *gorm.DB, m *metrics.DatastoreMetrics) SiteRepository {
	return &siteRepository{db: db, metrics: m}
}

// GetSite retrieves a site by id.
func (r *siteRepository) GetSite(ctx context.Context, id string) (site *sites.Site, err error) {
	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpSiteGet, tableSites, start, err) }()

	var e entities.Site
	err = r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(fmt.Errorf("%w: %s", sites.ErrSiteNotFound, id)).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Site(id).
			Build()
	}
	if err != nil {
		return nil, storageError(err, metrics.OpSiteGet, tableSites)
	}
	return siteFromEntity(&e), nil
}

// ListSites returns all sites ordered by id.
func (r *siteRepository) ListSites(ctx context.Context) ([]sites.Site, error) {
	var rows []entities.Site
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, storageError(err, metrics.OpSiteGet, tableSites)
	}

	result := make([]sites.Site, 0, len(rows))
	for i := range rows {
		result = append(result, *siteFromEntity(&rows[i]))
	}
	return result, nil
}

// UpsertSite creates or replaces a site.
func (r *siteRepository) UpsertSite(ctx context.Context, site *sites.Site) (err error) {
	if site == nil || site.ID == "" {
		return invalidInput("site id is required")
	}
	if err := site.Center.Validate(); err != nil {
		return invalidInput("site %s: %v", site.ID, err)
	}
	if site.RadiusMeters < 0 {
		return invalidInput("site %s: negative radius %v", site.ID, site.RadiusMeters)
	}

	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpSiteUpsert, tableSites, start, err) }()

	e := siteToEntity(site)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&e).Error
	if err != nil {
		return storageError(err, metrics.OpSiteUpsert, tableSites)
	}
	site.UpdatedAt = e.UpdatedAt.UTC()
	return nil
}
