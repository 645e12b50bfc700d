package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
	"github.com/fleetops/geocheckin/internal/sites"
)

// RecordStore is the append-only audit store.
//
// AppendCheckIn persists a check-in and marks its shift open in one atomic step.
// If the shift is already open it returns a *SequenceError wrapping
// ErrDuplicateCheckIn with the open record's id, and persists nothing.
//
// AppendCheckOut persists a check-out and closes the shift's open check-in in one
// atomic step, setting rec.PairedCheckInID. Without an open check-in it returns a
// *SequenceError wrapping ErrOrphanCheckOut.
//
// Other failures wrap ErrStorageUnavailable.
type RecordStore interface {
	AppendCheckIn(ctx context.Context, rec *Record) error
	AppendCheckOut(ctx context.Context, rec *Record) error
	ListRecords(ctx context.Context, shiftID string) ([]Record, error)
}

// Request describes one check-in or check-out attempt
type Request struct {
	SubjectID string
	ShiftID   string
	SiteID    string
	Reading   PositionReading
	Type      RecordType
}

// Recorder validates attempts and appends them to the audit store. Attempts for
// the same shift are serialized; different shifts never contend.
type Recorder struct {
	registry  sites.Registry
	validator *Validator
	store     RecordStore
	locks     *shiftLocks
	metrics   *metrics.CheckInMetrics
	log       logger.Logger
	now       func() time.Time
	newID     func() string
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithClock overrides the clock used for CreatedAt
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithMetrics enables check-in metrics
func WithMetrics(m *metrics.CheckInMetrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithLogger sets the module logger
func WithLogger(log logger.Logger) RecorderOption {
	return func(r *Recorder) { r.log = log }
}

// NewRecorder creates a Recorder
func NewRecorder(registry sites.Registry, validator *Validator, store RecordStore, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		registry:  registry,
		validator: validator,
		store:     store,
		locks:     newShiftLocks(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = NewValidator(DefaultThresholds())
	}
	if r.log == nil {
		r.log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}
	return r
}

// Record resolves the site, validates the reading and appends an immutable record.
// Errors are returned unchanged from the registry and validator. Sequence
// violations come back as *SequenceError.
func (r *Recorder) Record(ctx context.Context, req Request) (*Record, error) {
	start := time.Now()
	log := r.log.WithContext(ctx).With(
		logger.String("shift_id", req.ShiftID),
		logger.String("site_id", req.SiteID),
		logger.String("type", string(req.Type)))

	rec, err := r.record(ctx, req)
	outcome := outcomeOf(err)
	r.metrics.RecordAttempt(string(req.Type), outcome)
	r.metrics.RecordDuration(string(req.Type), time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			log.Warn("check-in not recorded", logger.String("outcome", outcome), logger.Error(err))
		} else {
			log.Debug("check-in rejected",
				logger.String("outcome", outcome),
				logger.Coordinates("position", req.Reading.Point.Latitude, req.Reading.Point.Longitude),
				logger.Float64("accuracy_m", req.Reading.AccuracyMeters),
				logger.Error(err))
		}
		return nil, err
	}

	r.metrics.RecordVerdict(string(rec.Type), rec.Verdict.WithinGeofence, string(rec.Verdict.AccuracyClass), rec.Verdict.DistanceMeters)
	log.Info("check-in recorded",
		logger.String("record_id", rec.ID),
		logger.Float64("distance_m", rec.Verdict.DistanceMeters),
		logger.Bool("within", rec.Verdict.WithinGeofence),
		logger.String("accuracy_class", string(rec.Verdict.AccuracyClass)))

	return rec, nil
}

func (r *Recorder) record(ctx context.Context, req Request) (*Record, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	site, err := r.registry.Resolve(ctx, req.SiteID)
	if err != nil {
		return nil, err
	}

	verdict, err := r.validator.Validate(req.Reading, site)
	if err != nil {
		return nil, err
	}

	waitStart := time.Now()
	unlock, err := r.locks.lock(ctx, req.ShiftID)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: waiting for shift %s: %w", ErrStorageUnavailable, req.ShiftID, err)).
			Category(errors.CategoryTimeout).
			Shift(req.ShiftID).
			Build()
	}
	defer unlock()
	r.metrics.RecordLockWait(time.Since(waitStart).Seconds())

	rec := &Record{
		ID:        r.newID(),
		SubjectID: req.SubjectID,
		SiteID:    site.ID,
		ShiftID:   req.ShiftID,
		Reading:   req.Reading,
		Verdict:   verdict,
		Type:      req.Type,
		CreatedAt: r.now().UTC(),
	}

	switch req.Type {
	case TypeCheckIn:
		err = r.store.AppendCheckIn(ctx, rec)
	case TypeCheckOut:
		err = r.store.AppendCheckOut(ctx, rec)
	}
	if err != nil {
		return nil, normalizeStoreError(err, req.ShiftID)
	}

	return rec, nil
}

// History returns the shift's records in creation order
func (r *Recorder) History(ctx context.Context, shiftID string) ([]Record, error) {
	records, err := r.store.ListRecords(ctx, shiftID)
	if err != nil {
		return nil, normalizeStoreError(err, shiftID)
	}
	return records, nil
}

func (req Request) validate() error {
	switch {
	case req.ShiftID == "":
		return errors.New(fmt.Errorf("%w: shift id is required", ErrInvalidRequest)).
			Category(errors.CategoryValidation).
			Build()
	case req.SubjectID == "":
		return errors.New(fmt.Errorf("%w: subject id is required", ErrInvalidRequest)).
			Category(errors.CategoryValidation).
			Build()
	case !req.Type.Valid():
		return errors.New(fmt.Errorf("%w: unknown record type %q", ErrInvalidRequest, req.Type)).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// normalizeStoreError keeps typed store errors and wraps anything else as
// ErrStorageUnavailable so callers can always classify it.
func normalizeStoreError(err error, shiftID string) error {
	if errors.Is(err, ErrDuplicateCheckIn) || errors.Is(err, ErrOrphanCheckOut) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return errors.New(fmt.Errorf("%w: %w", ErrStorageUnavailable, err)).
		Category(errors.CategoryDatabase).
		Shift(shiftID).
		Build()
}

// Outcome labels for metrics and logs
const (
	OutcomeRecorded       = "recorded"
	OutcomeDuplicate      = "duplicate"
	OutcomeOrphan         = "orphan"
	OutcomeInvalidReading = "invalid_reading"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeInvalidCoord   = "invalid_coordinate"
	OutcomeSiteNotFound   = "site_not_found"
	OutcomeSiteInactive   = "site_inactive"
	OutcomeStorageError   = "storage_unavailable"
	OutcomeOther          = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeRecorded
	case errors.Is(err, ErrDuplicateCheckIn):
		return OutcomeDuplicate
	case errors.Is(err, ErrOrphanCheckOut):
		return OutcomeOrphan
	case errors.Is(err, ErrInvalidReading):
		return OutcomeInvalidReading
	case errors.Is(err, ErrInvalidRequest):
		return OutcomeInvalidRequest
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return OutcomeInvalidCoord
	case errors.Is(err, sites.ErrSiteNotFound):
		return OutcomeSiteNotFound
	case errors.Is(err, sites.ErrSiteInactive):
		return OutcomeSiteInactive
	case errors.Is(err, ErrStorageUnavailable):
		return OutcomeStorageError
	default:
		return OutcomeOther
	}
}
