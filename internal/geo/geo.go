// Package geo provides great-circle distance calculations over WGS-84 coordinates.
package geo

import (
	"fmt"
	"math"

	"github.com/fleetops/geocheckin/internal/errors"
)

// EarthRadiusMeters is the mean earth radius used for haversine distances
const EarthRadiusMeters = 6_371_000.0

// ErrInvalidCoordinate is returned for a latitude or longitude outside its valid range, or NaN
var ErrInvalidCoordinate = errors.NewStd("invalid coordinate")

// Point is a WGS-84 coordinate in decimal degrees
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the point lies within [-90,90] x [-180,180].
// NaN fails both range checks.
func (p Point) Validate() error {
	if !(p.Latitude >= -90 && p.Latitude <= 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, p.Latitude)
	}
	if !(p.Longitude >= -180 && p.Longitude <= 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, p.Longitude)
	}
	return nil
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

func haversine(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	// rounding can push h just outside [0, 1] near the poles and for antipodes
	h = math.Max(0, math.Min(1, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
