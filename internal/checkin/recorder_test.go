package checkin

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/sites"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// staticRegistry resolves sites from a fixed map
type staticRegistry map[string]sites.Site

func (r staticRegistry) Resolve(_ context.Context, id string) (sites.Site, error) {
	site, ok := r[id]
	if !ok {
		return sites.Site{}, fmt.Errorf("%w: %s", sites.ErrSiteNotFound, id)
	}
	if !site.Active {
		return sites.Site{}, fmt.Errorf("%w: %s", sites.ErrSiteInactive, id)
	}
	return site, nil
}

// racyStore checks and writes in separate critical sections with a yield in
// between, so it relies on the Recorder to serialize same-shift callers.
type racyStore struct {
	mu      sync.Mutex
	records []Record
	open    map[string]string
	failErr error
}

func newRacyStore() *racyStore {
	return &racyStore{open: make(map[string]string)}
}

func (s *racyStore) openFor(shiftID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[shiftID]
}

func (s *racyStore) AppendCheckIn(_ context.Context, rec *Record) error {
	if s.failErr != nil {
		return s.failErr
	}
	if existing := s.openFor(rec.ShiftID); existing != "" {
		return NewDuplicateCheckIn(rec.ShiftID, existing)
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
	s.open[rec.ShiftID] = rec.ID
	return nil
}

func (s *racyStore) AppendCheckOut(_ context.Context, rec *Record) error {
	if s.failErr != nil {
		return s.failErr
	}
	existing := s.openFor(rec.ShiftID)
	if existing == "" {
		return NewOrphanCheckOut(rec.ShiftID)
	}
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec.PairedCheckInID = existing
	s.records = append(s.records, *rec)
	delete(s.open, rec.ShiftID)
	return nil
}

func (s *racyStore) ListRecords(_ context.Context, shiftID string) ([]Record, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, r := range s.records {
		if r.ShiftID == shiftID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestRecorder(store RecordStore) *Recorder {
	inactive := testSite(50)
	inactive.ID = "closed-yard"
	inactive.Active = false

	registry := staticRegistry{"north-yard": testSite(50), "closed-yard": inactive}
	clock := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	return NewRecorder(registry, NewValidator(DefaultThresholds()), store,
		WithClock(func() time.Time { return clock }))
}

func checkInRequest(shiftID string) Request {
	return Request{
		SubjectID: "emp-7",
		ShiftID:   shiftID,
		SiteID:    "north-yard",
		Reading:   readingAt(40.00005, -74, 8),
		Type:      TypeCheckIn,
	}
}

func TestRecorder_CheckInThenCheckOut(t *testing.T) {
	t.Parallel()

	store := newRacyStore()
	r := newTestRecorder(store)
	ctx := context.Background()

	in, err := r.Record(ctx, checkInRequest("shift-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, in.ID)
	assert.Equal(t, TypeCheckIn, in.Type)
	assert.Equal(t, "emp-7", in.SubjectID)
	assert.True(t, in.Verdict.WithinGeofence)
	assert.Equal(t, AccuracyPrecise, in.Verdict.AccuracyClass)

	req := checkInRequest("shift-1")
	req.Type = TypeCheckOut
	out, err := r.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.PairedCheckInID)
	assert.NotEqual(t, in.ID, out.ID)

	history, err := r.History(ctx, "shift-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, in.ID, history[0].ID)
}

func TestRecorder_DuplicateCheckIn(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())
	ctx := context.Background()

	first, err := r.Record(ctx, checkInRequest("shift-1"))
	require.NoError(t, err)

	_, err = r.Record(ctx, checkInRequest("shift-1"))
	require.ErrorIs(t, err, ErrDuplicateCheckIn)

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, "shift-1", seqErr.ShiftID)
	assert.Equal(t, first.ID, seqErr.ExistingRecordID)
}

func TestRecorder_OrphanCheckOut(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())

	req := checkInRequest("shift-1")
	req.Type = TypeCheckOut
	_, err := r.Record(context.Background(), req)
	require.ErrorIs(t, err, ErrOrphanCheckOut)
}

func TestRecorder_ConcurrentCheckInsSameShift(t *testing.T) {
	t.Parallel()

	store := newRacyStore()
	r := newTestRecorder(store)

	const attempts = 20
	var succeeded, duplicates atomic.Int32
	var wg sync.WaitGroup
	for range attempts {
		wg.Go(func() {
			_, err := r.Record(context.Background(), checkInRequest("shift-race"))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrDuplicateCheckIn):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), duplicates.Load())
	assert.Zero(t, r.locks.size())

	history, err := r.History(context.Background(), "shift-race")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecorder_DifferentShiftsDoNotContend(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			_, err := r.Record(context.Background(), checkInRequest(fmt.Sprintf("shift-%d", i)))
			assert.NoError(t, err)
		})
	}
	wg.Wait()
}

func TestRecorder_ResolutionErrorsPropagate(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())
	ctx := context.Background()

	req := checkInRequest("shift-1")
	req.SiteID = "nowhere"
	_, err := r.Record(ctx, req)
	require.ErrorIs(t, err, sites.ErrSiteNotFound)

	req.SiteID = "closed-yard"
	_, err = r.Record(ctx, req)
	require.ErrorIs(t, err, sites.ErrSiteInactive)

	req = checkInRequest("shift-1")
	req.Reading.AccuracyMeters = -3
	_, err = r.Record(ctx, req)
	require.ErrorIs(t, err, ErrInvalidReading)
}

func TestRecorder_InvalidRequest(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())

	for _, mutate := range []func(*Request){
		func(req *Request) { req.ShiftID = "" },
		func(req *Request) { req.SubjectID = "" },
		func(req *Request) { req.Type = "lunch_break" },
	} {
		req := checkInRequest("shift-1")
		mutate(&req)
		_, err := r.Record(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestRecorder_StorageErrorsAreClassified(t *testing.T) {
	t.Parallel()

	store := newRacyStore()
	store.failErr = errors.NewStd("disk I/O error")
	r := newTestRecorder(store)

	_, err := r.Record(context.Background(), checkInRequest("shift-1"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, store.failErr)

	_, err = r.History(context.Background(), "shift-1")
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestRecorder_CancelledWhileWaitingForShiftLock(t *testing.T) {
	t.Parallel()

	r := newTestRecorder(newRacyStore())

	unlock, err := r.locks.lock(context.Background(), "shift-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = r.Record(ctx, checkInRequest("shift-1"))
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Zero(t, r.locks.size())
}
