package repository

import (
	"context"

	"github.com/fleetops/geocheckin/internal/sites"
)

// SiteRepository provides access to the sites table. It satisfies sites.Store.
type SiteRepository interface {
	// GetSite retrieves a site by id, active or not.
	// Returns an error wrapping sites.ErrSiteNotFound if the id is unknown.
	GetSite(ctx context.Context, id string) (*sites.Site, error)

	// ListSites returns all sites ordered by id.
	ListSites(ctx context.Context) ([]sites.Site, error)

	// UpsertSite creates the site or replaces every column of an existing one.
	// A zero radius is stored as-is and resolved to the configured default on read.
	UpsertSite(ctx context.Context, site *sites.Site) error
}
