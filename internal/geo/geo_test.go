package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters_KnownDistances(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		a, b  Point
		want  float64
		delta float64
	}{
		{
			name:  "one degree of latitude",
			a:     Point{Latitude: 40, Longitude: -74},
			b:     Point{Latitude: 41, Longitude: -74},
			want:  111_195,
			delta: 1,
		},
		{
			name:  "antipodal on the equator",
			a:     Point{Latitude: 0, Longitude: 0},
			b:     Point{Latitude: 0, Longitude: 180},
			want:  math.Pi * EarthRadiusMeters,
			delta: 1e-6,
		},
		{
			name:  "pole to pole",
			a:     Point{Latitude: 90, Longitude: 0},
			b:     Point{Latitude: -90, Longitude: 0},
			want:  math.Pi * EarthRadiusMeters,
			delta: 1e-6,
		},
		{
			name:  "across the antimeridian",
			a:     Point{Latitude: 0, Longitude: 179.5},
			b:     Point{Latitude: 0, Longitude: -179.5},
			want:  111_195,
			delta: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DistanceMeters(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.False(t, math.IsNaN(got))
		})
	}
}

func TestDistanceMeters_Identity(t *testing.T) {
	t.Parallel()

	points := []Point{
		{Latitude: 90, Longitude: 0},
		{Latitude: -90, Longitude: 45},
		{Latitude: 0, Longitude: 180},
		{Latitude: 0, Longitude: -180},
		{Latitude: 52.520008, Longitude: 13.404954},
	}

	for _, p := range points {
		got, err := DistanceMeters(p, p)
		require.NoError(t, err)
		assert.Zero(t, got, "distance from %s to itself", p)
	}

	// the same meridian written two ways is the same place
	got, err := DistanceMeters(Point{Latitude: 0, Longitude: 180}, Point{Latitude: 0, Longitude: -180})
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 1e-6)
}

func TestDistanceMeters_Symmetry(t *testing.T) {
	t.Parallel()

	points := []Point{
		{Latitude: 40, Longitude: -74},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9999, Longitude: 10},
		{Latitude: 0, Longitude: -180},
		{Latitude: 51.5074, Longitude: -0.1278},
	}

	for _, a := range points {
		for _, b := range points {
			ab, err := DistanceMeters(a, b)
			require.NoError(t, err)
			ba, err := DistanceMeters(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9, "%s <-> %s", a, b)
		}
	}
}

func TestDistanceMeters_InvalidCoordinate(t *testing.T) {
	t.Parallel()

	valid := Point{Latitude: 10, Longitude: 10}
	invalid := []Point{
		{Latitude: 90.0001, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 180.5},
		{Latitude: 0, Longitude: -181},
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.NaN()},
		{Latitude: math.Inf(1), Longitude: 0},
	}

	for _, p := range invalid {
		_, err := DistanceMeters(valid, p)
		require.ErrorIs(t, err, ErrInvalidCoordinate, "point %v", p)

		_, err = DistanceMeters(p, valid)
		require.ErrorIs(t, err, ErrInvalidCoordinate, "point %v", p)
	}
}
