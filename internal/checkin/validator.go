package checkin

import (
	"fmt"
	"math"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/sites"
)

// Default accuracy class boundaries in meters
const (
	DefaultPreciseMeters  = 20.0
	DefaultDegradedMeters = 50.0
)

// Thresholds are the inclusive upper bounds of the precise and degraded classes
type Thresholds struct {
	PreciseMeters  float64
	DegradedMeters float64
}

// DefaultThresholds returns the 20m / 50m class boundaries
func DefaultThresholds() Thresholds {
	return Thresholds{PreciseMeters: DefaultPreciseMeters, DegradedMeters: DefaultDegradedMeters}
}

// Validator decides whether a reading satisfies a site geofence.
// It never rejects a reading for low accuracy; the class is reported and
// acting on it is up to the caller.
type Validator struct {
	thresholds Thresholds
}

// NewValidator creates a Validator. Non-positive thresholds fall back to the defaults.
func NewValidator(t Thresholds) *Validator {
	def := DefaultThresholds()
	if t.PreciseMeters <= 0 {
		t.PreciseMeters = def.PreciseMeters
	}
	if t.DegradedMeters <= 0 {
		t.DegradedMeters = def.DegradedMeters
	}
	if t.DegradedMeters < t.PreciseMeters {
		t.DegradedMeters = t.PreciseMeters
	}
	return &Validator{thresholds: t}
}

// Thresholds returns the class boundaries in use
func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Classify buckets an accuracy radius. Boundaries belong to the better class.
func (v *Validator) Classify(accuracyMeters float64) AccuracyClass {
	switch {
	case accuracyMeters <= v.thresholds.PreciseMeters:
		return AccuracyPrecise
	case accuracyMeters <= v.thresholds.DegradedMeters:
		return AccuracyDegraded
	default:
		return AccuracyUnreliable
	}
}

// Validate computes the verdict for reading against site.
// Coordinate errors from geo are returned unchanged.
func (v *Validator) Validate(reading PositionReading, site sites.Site) (Verdict, error) {
	acc := reading.AccuracyMeters
	if math.IsNaN(acc) || math.IsInf(acc, 0) || acc < 0 {
		return Verdict{}, errors.New(fmt.Errorf("%w: accuracy %v", ErrInvalidReading, acc)).
			Category(errors.CategoryValidation).
			Build()
	}

	distance, err := geo.DistanceMeters(reading.Point, site.Center)
	if err != nil {
		return Verdict{}, err
	}

	return Verdict{
		DistanceMeters: distance,
		WithinGeofence: distance <= site.RadiusMeters,
		AccuracyClass:  v.Classify(acc),
	}, nil
}
