package checkin

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/sites"
)

func testSite(radius float64) sites.Site {
	return sites.Site{
		ID:           "north-yard",
		Center:       geo.Point{Latitude: 40, Longitude: -74},
		RadiusMeters: radius,
		Active:       true,
	}
}

func readingAt(lat, lon, accuracy float64) PositionReading {
	return PositionReading{
		Point:          geo.Point{Latitude: lat, Longitude: lon},
		AccuracyMeters: accuracy,
		CapturedAt:     time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
	}
}

func TestValidator_Classify(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultThresholds())

	tests := []struct {
		accuracy float64
		want     AccuracyClass
	}{
		{0, AccuracyPrecise},
		{20, AccuracyPrecise},
		{20.0001, AccuracyDegraded},
		{50, AccuracyDegraded},
		{50.0001, AccuracyUnreliable},
		{5000, AccuracyUnreliable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, v.Classify(tt.accuracy), "accuracy %v", tt.accuracy)
	}
}

func TestValidator_CustomThresholds(t *testing.T) {
	t.Parallel()

	v := NewValidator(Thresholds{PreciseMeters: 10, DegradedMeters: 30})
	assert.Equal(t, AccuracyDegraded, v.Classify(20))
	assert.Equal(t, AccuracyUnreliable, v.Classify(31))

	// zero values fall back to the defaults
	assert.Equal(t, DefaultThresholds(), NewValidator(Thresholds{}).Thresholds())
}

func TestValidator_BoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultThresholds())
	reading := readingAt(40.0004, -74, 5)

	distance, err := geo.DistanceMeters(reading.Point, testSite(0).Center)
	require.NoError(t, err)

	verdict, err := v.Validate(reading, testSite(distance))
	require.NoError(t, err)
	assert.True(t, verdict.WithinGeofence)
	assert.InDelta(t, distance, verdict.DistanceMeters, 0)

	verdict, err = v.Validate(reading, testSite(distance-1))
	require.NoError(t, err)
	assert.False(t, verdict.WithinGeofence)
}

func TestValidator_UnreliableAccuracyDoesNotReject(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultThresholds())

	verdict, err := v.Validate(readingAt(40, -74, 250), testSite(50))
	require.NoError(t, err)
	assert.True(t, verdict.WithinGeofence)
	assert.Equal(t, AccuracyUnreliable, verdict.AccuracyClass)
	assert.Zero(t, verdict.DistanceMeters)
}

func TestValidator_InvalidReading(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultThresholds())

	for _, acc := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := v.Validate(readingAt(40, -74, acc), testSite(50))
		require.ErrorIs(t, err, ErrInvalidReading, "accuracy %v", acc)
	}
}

func TestValidator_InvalidCoordinatePropagates(t *testing.T) {
	t.Parallel()

	v := NewValidator(DefaultThresholds())

	_, err := v.Validate(readingAt(91, -74, 5), testSite(50))
	require.ErrorIs(t, err, geo.ErrInvalidCoordinate)
	assert.NotErrorIs(t, err, ErrInvalidReading)
}
