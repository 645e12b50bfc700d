package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
)

var shiftStart = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

type fakeDirectory map[string]*Shift

func (d fakeDirectory) GetShift(_ context.Context, id string) (*Shift, error) {
	s, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrShiftNotFound, id)
	}
	return s, nil
}

type fakeHistory struct {
	records map[string][]checkin.Record
	err     error
}

func (h *fakeHistory) ListRecords(_ context.Context, shiftID string) ([]checkin.Record, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.records[shiftID], nil
}

func record(id string, typ checkin.RecordType, offset time.Duration, lat, lon, distance float64) checkin.Record {
	at := shiftStart.Add(offset)
	return checkin.Record{
		ID:        id,
		SubjectID: "emp-7",
		SiteID:    "north-yard",
		ShiftID:   "shift-1",
		Type:      typ,
		Reading: checkin.PositionReading{
			Point:          geo.Point{Latitude: lat, Longitude: lon},
			AccuracyMeters: 8,
			CapturedAt:     at,
		},
		Verdict: checkin.Verdict{
			DistanceMeters: distance,
			WithinGeofence: true,
			AccuracyClass:  checkin.AccuracyPrecise,
		},
		CreatedAt: at,
	}
}

func newTestManager(records []checkin.Record, now time.Time) *Manager {
	dir := fakeDirectory{
		"shift-1": {ID: "shift-1", SubjectID: "emp-7", ScheduledStart: shiftStart, ScheduledEnd: shiftStart.Add(9 * time.Hour)},
		"shift-empty": {ID: "shift-empty", SubjectID: "emp-9", ScheduledStart: shiftStart, ScheduledEnd: shiftStart.Add(8 * time.Hour)},
	}
	history := &fakeHistory{records: map[string][]checkin.Record{"shift-1": records}}
	return NewManager(dir, history, Config{Now: func() time.Time { return now }}, nil, nil)
}

func TestBuildSession_EightHourShift(t *testing.T) {
	t.Parallel()

	in := record("r1", checkin.TypeCheckIn, 0, 40.00009, -74, 10)
	out := record("r2", checkin.TypeCheckOut, 28800*time.Second, 40.000135, -74, 15)
	out.PairedCheckInID = "r1"

	m := newTestManager([]checkin.Record{in, out}, shiftStart.Add(24*time.Hour))

	ws, err := m.BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)

	assert.Equal(t, "emp-7", ws.SubjectID)
	require.Len(t, ws.Pairs, 1)
	assert.Equal(t, "r1", ws.Pairs[0].CheckIn.ID)
	require.NotNil(t, ws.Pairs[0].CheckOut)
	assert.Equal(t, "r2", ws.Pairs[0].CheckOut.ID)
	assert.Empty(t, ws.Anomalies)
	assert.False(t, ws.IsOpen())
}

func TestBuildSession_ImpossibleTravel(t *testing.T) {
	t.Parallel()

	first := record("r1", checkin.TypeCheckIn, 0, 40, -74, 0)
	second := record("r2", checkin.TypeCheckOut, time.Minute, 41, -74, 0)

	ws, err := newTestManager([]checkin.Record{first, second}, shiftStart).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)

	require.True(t, ws.HasAnomaly(ImpossibleTravel))
	for _, a := range ws.Anomalies {
		if a.Kind == ImpossibleTravel {
			assert.Equal(t, "r2", a.RecordID)
			assert.Equal(t, "r1", a.PreviousRecordID)
			assert.InDelta(t, 6672, a.SpeedKmh, 5)
		}
	}
}

func TestBuildSession_SpeedCeilingIsConfigurable(t *testing.T) {
	t.Parallel()

	// ~111km in two hours is ~56 km/h
	first := record("r1", checkin.TypeCheckIn, 0, 40, -74, 0)
	second := record("r2", checkin.TypeCheckOut, 2*time.Hour, 41, -74, 0)
	records := []checkin.Record{first, second}

	ws, err := newTestManager(records, shiftStart).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.False(t, ws.HasAnomaly(ImpossibleTravel))

	strict := NewManager(
		fakeDirectory{"shift-1": {ID: "shift-1", SubjectID: "emp-7"}},
		&fakeHistory{records: map[string][]checkin.Record{"shift-1": records}},
		Config{MaxSpeedKmh: 30}, nil, nil)
	ws, err = strict.BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.True(t, ws.HasAnomaly(ImpossibleTravel))
}

func TestBuildSession_ReceiptTimesCapElapsed(t *testing.T) {
	t.Parallel()

	// received a minute apart, but the device claims the readings were two hours apart
	first := record("r1", checkin.TypeCheckIn, 0, 40, -74, 0)
	second := record("r2", checkin.TypeCheckOut, time.Minute, 41, -74, 0)
	second.Reading.CapturedAt = first.Reading.CapturedAt.Add(2 * time.Hour)
	records := []checkin.Record{first, second}
	dir := fakeDirectory{"shift-1": {ID: "shift-1", SubjectID: "emp-7"}}
	history := &fakeHistory{records: map[string][]checkin.Record{"shift-1": records}}

	tests := []struct {
		name      string
		maxAge    time.Duration
		flagged   bool
		wantSpeed float64
	}{
		{name: "age unbounded trusts capture times", maxAge: 0, flagged: false},
		{name: "one minute age caps elapsed at two minutes", maxAge: time.Minute, flagged: true, wantSpeed: 3336},
		{name: "long age leaves capture gap", maxAge: 3 * time.Hour, flagged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(dir, history, Config{MaxReadingAge: tt.maxAge}, nil, nil)

			ws, err := m.BuildSession(context.Background(), "shift-1")
			require.NoError(t, err)
			assert.Equal(t, tt.flagged, ws.HasAnomaly(ImpossibleTravel))
			for _, a := range ws.Anomalies {
				if a.Kind == ImpossibleTravel {
					assert.InDelta(t, tt.wantSpeed, a.SpeedKmh, 5)
				}
			}
		})
	}
}

func TestBuildSession_NonMonotonicTimestamp(t *testing.T) {
	t.Parallel()

	first := record("r1", checkin.TypeCheckIn, time.Hour, 40, -74, 0)
	// created later but the device reported an earlier capture time
	second := record("r2", checkin.TypeCheckOut, 2*time.Hour, 41, -74, 0)
	second.Reading.CapturedAt = first.Reading.CapturedAt

	ws, err := newTestManager([]checkin.Record{first, second}, shiftStart).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)

	assert.True(t, ws.HasAnomaly(NonMonotonicTimestamp))
	assert.False(t, ws.HasAnomaly(ImpossibleTravel))
}

func TestBuildSession_MissingCheckout(t *testing.T) {
	t.Parallel()

	in := record("r1", checkin.TypeCheckIn, 0, 40, -74, 5)

	// shift still running
	ws, err := newTestManager([]checkin.Record{in}, shiftStart.Add(4*time.Hour)).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.True(t, ws.IsOpen())
	assert.Empty(t, ws.Anomalies)

	// scheduled end has passed
	ws, err = newTestManager([]checkin.Record{in}, shiftStart.Add(10*time.Hour)).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.True(t, ws.IsOpen())
	require.Len(t, ws.Anomalies, 1)
	assert.Equal(t, MissingCheckout, ws.Anomalies[0].Kind)
	assert.Equal(t, "r1", ws.Anomalies[0].RecordID)
}

func TestBuildSession_ImportedHistoryAnomalies(t *testing.T) {
	t.Parallel()

	records := []checkin.Record{
		record("r0", checkin.TypeCheckOut, 0, 40, -74, 5),
		record("r1", checkin.TypeCheckIn, time.Hour, 40, -74, 5),
		record("r2", checkin.TypeCheckIn, 2*time.Hour, 40, -74, 5),
		record("r3", checkin.TypeCheckOut, 3*time.Hour, 40, -74, 5),
	}

	ws, err := newTestManager(records, shiftStart.Add(4*time.Hour)).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)

	require.Len(t, ws.Pairs, 2)
	assert.Nil(t, ws.Pairs[0].CheckOut)
	require.NotNil(t, ws.Pairs[1].CheckOut)
	assert.Equal(t, "r3", ws.Pairs[1].CheckOut.ID)

	require.Len(t, ws.Anomalies, 2)
	assert.Equal(t, UnpairedCheckOut, ws.Anomalies[0].Kind)
	assert.Equal(t, "r0", ws.Anomalies[0].RecordID)
	assert.Equal(t, MissingCheckout, ws.Anomalies[1].Kind)
	assert.Equal(t, "r1", ws.Anomalies[1].RecordID)
}

func TestBuildSession_OrdersByCreatedAt(t *testing.T) {
	t.Parallel()

	in := record("r1", checkin.TypeCheckIn, 0, 40, -74, 5)
	out := record("r2", checkin.TypeCheckOut, time.Hour, 40, -74, 5)

	ws, err := newTestManager([]checkin.Record{out, in}, shiftStart).BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	require.Len(t, ws.Pairs, 1)
	assert.Equal(t, "r1", ws.Pairs[0].CheckIn.ID)
	assert.Empty(t, ws.Anomalies)
}

func TestBuildSession_Idempotent(t *testing.T) {
	t.Parallel()

	records := []checkin.Record{
		record("r1", checkin.TypeCheckIn, 0, 40, -74, 5),
		record("r2", checkin.TypeCheckOut, time.Minute, 41, -74, 5),
	}
	m := newTestManager(records, shiftStart.Add(24*time.Hour))

	first, err := m.BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)
	second, err := m.BuildSession(context.Background(), "shift-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildSession_EmptyButKnownShift(t *testing.T) {
	t.Parallel()

	ws, err := newTestManager(nil, shiftStart).BuildSession(context.Background(), "shift-empty")
	require.NoError(t, err)
	assert.Equal(t, "emp-9", ws.SubjectID)
	assert.Empty(t, ws.Pairs)
	assert.Empty(t, ws.Anomalies)
	assert.Nil(t, ws.Current())
}

func TestBuildSession_ShiftNotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager(nil, shiftStart)

	_, err := m.BuildSession(context.Background(), "shift-unknown")
	require.ErrorIs(t, err, ErrShiftNotFound)

	_, err = m.BuildSession(context.Background(), "")
	require.ErrorIs(t, err, ErrShiftNotFound)
}

func TestBuildSession_StorageFailure(t *testing.T) {
	t.Parallel()

	m := NewManager(
		fakeDirectory{"shift-1": {ID: "shift-1"}},
		&fakeHistory{err: errors.NewStd("database is locked")},
		Config{}, nil, nil)

	_, err := m.BuildSession(context.Background(), "shift-1")
	require.ErrorIs(t, err, checkin.ErrStorageUnavailable)
}
