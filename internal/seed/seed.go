// Package seed loads site and shift definitions from YAML files into the
// directory tables. Site administration and rostering own these records; seed
// files are how they hand them to geocheckin.
//
//	sites:
//	  - id: depot-north
//	    name: North depot
//	    latitude: 40.7128
//	    longitude: -74.006
//	    radius: 75
//	    active: true
//	shifts:
//	  - id: shift-2026-03-02-emp7
//	    subject: emp-7
//	    start: 2026-03-02T06:00:00Z
//	    end: 2026-03-02T14:00:00Z
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// ErrInvalidSeed is returned for malformed or inconsistent seed files
var ErrInvalidSeed = errors.NewStd("invalid seed file")

// SiteEntry is one site in a seed file
type SiteEntry struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	// Radius in meters. Zero means the configured default.
	Radius float64 `yaml:"radius"`
	// Active defaults to true when omitted
	Active *bool `yaml:"active"`
}

// ShiftEntry is one scheduled shift in a seed file
type ShiftEntry struct {
	ID      string    `yaml:"id"`
	Subject string    `yaml:"subject"`
	Start   time.Time `yaml:"start"`
	End     time.Time `yaml:"end"`
}

// File is the decoded seed document
type File struct {
	Sites  []SiteEntry  `yaml:"sites"`
	Shifts []ShiftEntry `yaml:"shifts"`
}

// SiteWriter stores site definitions
type SiteWriter interface {
	UpsertSite(ctx context.Context, site *sites.Site) error
}

// ShiftWriter stores shifts
type ShiftWriter interface {
	UpsertShift(ctx context.Context, shift *session.Shift) error
}

// Invalidator drops cached site definitions
type Invalidator interface {
	Invalidate(id string)
}

// Result counts what an import wrote
type Result struct {
	Sites  int
	Shifts int
}

// Parse decodes and validates a seed document. Unknown keys are rejected so a
// typo does not silently drop a field.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, invalid(fmt.Errorf("%w: %w", ErrInvalidSeed, err))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFile reads and parses the seed file at path
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("opening seed file: %w", err)).
			Component("seed").
			Category(errors.CategorySystem).
			Context("path", path).
			Build()
	}
	defer fh.Close()
	return Parse(fh)
}

// Validate checks ids, coordinates and shift windows. Every problem is
// reported, not just the first.
func (f *File) Validate() error {
	var problems []string

	seen := make(map[string]bool, len(f.Sites))
	for i, s := range f.Sites {
		switch {
		case strings.TrimSpace(s.ID) == "":
			problems = append(problems, fmt.Sprintf("sites[%d]: id is required", i))
		case seen[s.ID]:
			problems = append(problems, fmt.Sprintf("sites[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if err := (geo.Point{Latitude: s.Latitude, Longitude: s.Longitude}).Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("sites[%d]: %v", i, err))
		}
		if s.Radius < 0 {
			problems = append(problems, fmt.Sprintf("sites[%d]: radius must not be negative", i))
		}
	}

	seen = make(map[string]bool, len(f.Shifts))
	for i, s := range f.Shifts {
		switch {
		case strings.TrimSpace(s.ID) == "":
			problems = append(problems, fmt.Sprintf("shifts[%d]: id is required", i))
		case seen[s.ID]:
			problems = append(problems, fmt.Sprintf("shifts[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if strings.TrimSpace(s.Subject) == "" {
			problems = append(problems, fmt.Sprintf("shifts[%d]: subject is required", i))
		}
		if s.Start.IsZero() || s.End.IsZero() {
			problems = append(problems, fmt.Sprintf("shifts[%d]: start and end are required", i))
		} else if !s.End.After(s.Start) {
			problems = append(problems, fmt.Sprintf("shifts[%d]: end must be after start", i))
		}
	}

	if len(problems) > 0 {
		return invalid(fmt.Errorf("%w: %s", ErrInvalidSeed, strings.Join(problems, "; ")))
	}
	return nil
}

// Importer writes parsed seed files through the repositories
type Importer struct {
	Sites  SiteWriter
	Shifts ShiftWriter
	// Cache is optional; imported sites are evicted so the next resolve sees them
	Cache Invalidator
	Log   logger.Logger
}

// Import upserts every site, then every shift. It stops at the first store
// error; records written before it stay written.
func (im *Importer) Import(ctx context.Context, f *File) (Result, error) {
	var res Result
	log := im.Log
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}

	if len(f.Sites) > 0 && im.Sites == nil {
		return res, errors.Newf("seed file has sites but no site store is configured").
			Component("seed").Category(errors.CategoryConfiguration).Build()
	}
	for _, e := range f.Sites {
		site := e.site()
		if err := im.Sites.UpsertSite(ctx, &site); err != nil {
			return res, err
		}
		if im.Cache != nil {
			im.Cache.Invalidate(site.ID)
		}
		res.Sites++
		log.Debug("site imported", logger.String("site_id", site.ID), logger.Bool("active", site.Active))
	}

	if len(f.Shifts) > 0 && im.Shifts == nil {
		return res, errors.Newf("seed file has shifts but no shift store is configured").
			Component("seed").Category(errors.CategoryConfiguration).Build()
	}
	for _, e := range f.Shifts {
		shift := session.Shift{
			ID:             e.ID,
			SubjectID:      e.Subject,
			ScheduledStart: e.Start.UTC(),
			ScheduledEnd:   e.End.UTC(),
		}
		if err := im.Shifts.UpsertShift(ctx, &shift); err != nil {
			return res, err
		}
		res.Shifts++
		log.Debug("shift imported", logger.String("shift_id", shift.ID), logger.String("subject_id", shift.SubjectID))
	}

	log.Info("seed import complete", logger.Int("sites", res.Sites), logger.Int("shifts", res.Shifts))
	return res, nil
}

func (e SiteEntry) site() sites.Site {
	active := true
	if e.Active != nil {
		active = *e.Active
	}
	return sites.Site{
		ID:           e.ID,
		Name:         e.Name,
		Center:       geo.Point{Latitude: e.Latitude, Longitude: e.Longitude},
		RadiusMeters: e.Radius,
		Active:       active,
	}
}

func invalid(err error) error {
	return errors.New(err).
		Component("seed").
		Category(errors.CategoryValidation).
		Build()
}
