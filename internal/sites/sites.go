// Package sites resolves geofence site definitions for check-in validation.
//
// Sites are owned by site administration. This package only reads them, through
// a Store, and optionally caches resolved definitions in a CachedRegistry.
package sites

import (
	"context"
	"time"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
)

var (
	// ErrSiteNotFound is returned when no site with the requested id exists
	ErrSiteNotFound = errors.NewStd("site not found")
	// ErrSiteInactive is returned when the site exists but is not accepting check-ins
	ErrSiteInactive = errors.NewStd("site inactive")
)

// Site is a circular geofence around a site center
type Site struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Center       geo.Point `json:"center"`
	RadiusMeters float64   `json:"radiusMeters"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store is the persistence collaborator for site definitions.
// GetSite returns ErrSiteNotFound (possibly wrapped) when the id is unknown.
type Store interface {
	GetSite(ctx context.Context, id string) (*Site, error)
}

// Registry resolves a site id to an active geofence definition
type Registry interface {
	Resolve(ctx context.Context, id string) (Site, error)
}
