package sites

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// DefaultRadiusMeters applies to sites stored without a radius
const DefaultRadiusMeters = 50.0

// DefaultLookupTimeout bounds a shared store read
const DefaultLookupTimeout = 5 * time.Second

// RegistryConfig configures a CachedRegistry
type RegistryConfig struct {
	DefaultRadius float64       // radius applied to sites without one, DefaultRadiusMeters when zero
	CacheTTL      time.Duration // zero disables caching
	LookupTimeout time.Duration // DefaultLookupTimeout when zero
}

// CachedRegistry resolves sites from a Store. Resolved definitions are cached
// for CacheTTL and concurrent lookups for the same id share one store read.
// The shared read is detached from any single caller's cancellation; each
// caller stops waiting when its own context ends.
// Inactive sites are cached too, so deactivation takes effect after Invalidate
// or TTL expiry like any other change. A read that was in flight when its id
// was invalidated is not cached.
type CachedRegistry struct {
	store         Store
	cache         *cache.Cache
	group         singleflight.Group
	defaultRadius float64
	lookupTimeout time.Duration
	metrics       *metrics.CheckInMetrics
	log           logger.Logger

	genMu sync.Mutex
	gens  map[string]uint64 // bumped by Invalidate
	epoch uint64            // bumped by Flush
}

// NewCachedRegistry creates a registry over store. A nil log discards output and
// a nil metrics disables instrumentation.
func NewCachedRegistry(store Store, cfg RegistryConfig, m *metrics.CheckInMetrics, log logger.Logger) *CachedRegistry {
	if cfg.DefaultRadius <= 0 {
		cfg.DefaultRadius = DefaultRadiusMeters
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}

	r := &CachedRegistry{
		store:         store,
		defaultRadius: cfg.DefaultRadius,
		lookupTimeout: cfg.LookupTimeout,
		metrics:       m,
		log:           log,
		gens:          make(map[string]uint64),
	}
	if cfg.CacheTTL > 0 {
		r.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}
	return r
}

// Resolve returns the site with id, failing with ErrSiteNotFound or ErrSiteInactive.
// Store failures are returned unchanged.
func (r *CachedRegistry) Resolve(ctx context.Context, id string) (Site, error) {
	if id == "" {
		r.metrics.RecordSiteLookup(metrics.LookupNotFound)
		return Site{}, errors.New(fmt.Errorf("%w: empty site id", ErrSiteNotFound)).
			Category(errors.CategoryNotFound).
			Build()
	}

	site, err := r.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSiteNotFound) {
			r.metrics.RecordSiteLookup(metrics.LookupNotFound)
			return Site{}, err
		}
		r.metrics.RecordSiteLookup(metrics.LookupError)
		return Site{}, err
	}

	if !site.Active {
		r.metrics.RecordSiteLookup(metrics.LookupInactive)
		return Site{}, errors.New(fmt.Errorf("%w: %s", ErrSiteInactive, id)).
			Category(errors.CategoryState).
			Site(id).
			Build()
	}

	return site, nil
}

func (r *CachedRegistry) lookup(ctx context.Context, id string) (Site, error) {
	if r.cache != nil {
		if cached, found := r.cache.Get(id); found {
			if site, ok := cached.(Site); ok {
				r.metrics.RecordSiteLookup(metrics.LookupHit)
				return site, nil
			}
		}
	}

	ch := r.group.DoChan(id, func() (any, error) {
		return r.read(ctx, id)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return Site{}, errors.New(fmt.Errorf("resolve site %s: %w", id, ctx.Err())).
			Category(errors.CategoryCancellation).
			Site(id).
			Build()
	}
	if res.Err != nil {
		return Site{}, res.Err
	}

	if !res.Shared {
		r.metrics.RecordSiteLookup(metrics.LookupMiss)
	}
	r.log.Debug("site resolved from store",
		logger.String("site_id", id),
		logger.Bool("shared", res.Shared))

	site, _ := res.Val.(Site)
	return site, nil
}

// read loads id from the store on behalf of every waiting caller
func (r *CachedRegistry) read(ctx context.Context, id string) (Site, error) {
	gen := r.generation(id)

	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
	defer cancel()

	stored, err := r.store.GetSite(readCtx, id)
	if err != nil {
		return Site{}, err
	}
	site := r.normalize(stored)
	if err := site.Center.Validate(); err != nil {
		return Site{}, errors.New(fmt.Errorf("site %s: %w", id, err)).
			Category(errors.CategoryValidation).
			Site(id).
			Build()
	}
	r.cacheIfCurrent(id, site, gen)
	return site, nil
}

func (r *CachedRegistry) generation(id string) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.epoch + r.gens[id]
}

// cacheIfCurrent stores site unless id was invalidated since gen was taken
func (r *CachedRegistry) cacheIfCurrent(id string, site Site, gen uint64) {
	if r.cache == nil {
		return
	}
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.epoch+r.gens[id] != gen {
		r.log.Debug("discarding site read superseded by invalidation", logger.String("site_id", id))
		return
	}
	r.cache.Set(id, site, cache.DefaultExpiration)
}

func (r *CachedRegistry) normalize(stored *Site) Site {
	site := *stored
	if site.RadiusMeters <= 0 {
		site.RadiusMeters = r.defaultRadius
	}
	return site
}

// Invalidate drops a cached site definition. Site administration calls it after
// changing a site so the next Resolve reads the store.
func (r *CachedRegistry) Invalidate(id string) {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	r.gens[id]++
	r.group.Forget(id)
	if r.cache != nil {
		r.cache.Delete(id)
	}
}

// Flush drops every cached site definition.
func (r *CachedRegistry) Flush() {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	r.epoch++
	if r.cache != nil {
		r.cache.Flush()
	}
}
