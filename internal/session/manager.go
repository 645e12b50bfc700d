package session

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// DefaultMaxSpeedKmh is the travel speed ceiling used when none is configured
const DefaultMaxSpeedKmh = 200.0

// Config configures a Manager
type Config struct {
	MaxSpeedKmh float64          // DefaultMaxSpeedKmh when zero
	Now         func() time.Time // time.Now when nil

	// MaxReadingAge is the oldest reading the service accepts. When set, the
	// gap between receipt times plus this age bounds the elapsed time used
	// for travel checks, so device capture times cannot stretch it.
	MaxReadingAge time.Duration
}

// Manager derives work sessions
type Manager struct {
	directory   ShiftDirectory
	history     HistorySource
	maxSpeedMps float64
	maxAge      time.Duration
	now         func() time.Time
	metrics     *metrics.CheckInMetrics
	log         logger.Logger
}

// NewManager creates a Manager. m and log may be nil.
func NewManager(directory ShiftDirectory, history HistorySource, cfg Config, m *metrics.CheckInMetrics, log logger.Logger) *Manager {
	if cfg.MaxSpeedKmh <= 0 {
		cfg.MaxSpeedKmh = DefaultMaxSpeedKmh
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}
	return &Manager{
		directory:   directory,
		history:     history,
		maxSpeedMps: cfg.MaxSpeedKmh / 3.6,
		maxAge:      cfg.MaxReadingAge,
		now:         cfg.Now,
		metrics:     m,
		log:         log,
	}
}

// BuildSession derives the work session for shiftID. A known shift without
// records yields an empty session; an unknown shift fails with ErrShiftNotFound.
func (m *Manager) BuildSession(ctx context.Context, shiftID string) (*WorkSession, error) {
	ws, err := m.buildSession(ctx, shiftID)
	if err != nil {
		m.metrics.RecordSessionBuild(metrics.StatusError)
		return nil, err
	}

	m.metrics.RecordSessionBuild(metrics.StatusSuccess)
	for _, a := range ws.Anomalies {
		m.metrics.RecordAnomaly(string(a.Kind))
	}
	if len(ws.Anomalies) > 0 {
		m.log.WithContext(ctx).Debug("session anomalies flagged",
			logger.String("shift_id", shiftID),
			logger.Int("anomalies", len(ws.Anomalies)))
	}
	return ws, nil
}

func (m *Manager) buildSession(ctx context.Context, shiftID string) (*WorkSession, error) {
	if shiftID == "" {
		return nil, errors.New(fmt.Errorf("%w: empty shift id", ErrShiftNotFound)).
			Category(errors.CategoryNotFound).
			Build()
	}

	shift, err := m.directory.GetShift(ctx, shiftID)
	if err != nil {
		return nil, storageOrPassthrough(err, shiftID)
	}

	records, err := m.history.ListRecords(ctx, shiftID)
	if err != nil {
		return nil, storageOrPassthrough(err, shiftID)
	}

	// stable, so records sharing a timestamp keep their insertion order
	records = slices.Clone(records)
	slices.SortStableFunc(records, func(a, b checkin.Record) int {
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})

	ws := &WorkSession{
		SubjectID: shift.SubjectID,
		ShiftID:   shiftID,
		Pairs:     []Pair{},
		Anomalies: []Anomaly{},
	}

	m.pair(ws, records, shift)
	m.checkTravel(ws, records)

	return ws, nil
}

// pair matches check-outs to check-ins. A stored pairing wins; otherwise a
// check-out closes the currently open check-in.
func (m *Manager) pair(ws *WorkSession, records []checkin.Record, shift *Shift) {
	open := -1
	byID := make(map[string]int)

	for i := range records {
		rec := records[i]
		switch rec.Type {
		case checkin.TypeCheckIn:
			if open >= 0 {
				ws.Anomalies = append(ws.Anomalies, Anomaly{
					Kind:     MissingCheckout,
					RecordID: ws.Pairs[open].CheckIn.ID,
					Detail:   "superseded by check-in " + rec.ID,
				})
			}
			ws.Pairs = append(ws.Pairs, Pair{CheckIn: rec})
			open = len(ws.Pairs) - 1
			byID[rec.ID] = open

		case checkin.TypeCheckOut:
			target := open
			if rec.PairedCheckInID != "" {
				idx, ok := byID[rec.PairedCheckInID]
				if !ok {
					idx = -1
				}
				target = idx
			}
			if target < 0 || ws.Pairs[target].CheckOut != nil {
				ws.Anomalies = append(ws.Anomalies, Anomaly{
					Kind:     UnpairedCheckOut,
					RecordID: rec.ID,
				})
				continue
			}
			ws.Pairs[target].CheckOut = &rec
			if target == open {
				open = -1
			}
		}
	}

	if open >= 0 && !shift.ScheduledEnd.IsZero() && m.now().After(shift.ScheduledEnd) {
		ws.Anomalies = append(ws.Anomalies, Anomaly{
			Kind:     MissingCheckout,
			RecordID: ws.Pairs[open].CheckIn.ID,
			Detail:   "scheduled end " + shift.ScheduledEnd.UTC().Format(time.RFC3339) + " has passed",
		})
	}
}

// checkTravel compares each record with its predecessor using capture times,
// capped by receipt times when a maximum reading age is enforced.
func (m *Manager) checkTravel(ws *WorkSession, records []checkin.Record) {
	for i := 1; i < len(records); i++ {
		prev, next := records[i-1], records[i]

		elapsed := next.Reading.CapturedAt.Sub(prev.Reading.CapturedAt).Seconds()
		if m.maxAge > 0 {
			// prev was captured no earlier than its receipt minus maxAge and
			// next no later than its receipt
			bound := (next.CreatedAt.Sub(prev.CreatedAt) + m.maxAge).Seconds()
			if bound > 0 && bound < elapsed {
				elapsed = bound
			}
		}
		if elapsed <= 0 {
			ws.Anomalies = append(ws.Anomalies, Anomaly{
				Kind:             NonMonotonicTimestamp,
				RecordID:         next.ID,
				PreviousRecordID: prev.ID,
			})
			continue
		}

		distance, err := geo.DistanceMeters(prev.Reading.Point, next.Reading.Point)
		if err != nil {
			// stored readings were validated on write; skip anything imported with bad coordinates
			continue
		}

		if speed := distance / elapsed; speed > m.maxSpeedMps {
			ws.Anomalies = append(ws.Anomalies, Anomaly{
				Kind:             ImpossibleTravel,
				RecordID:         next.ID,
				PreviousRecordID: prev.ID,
				SpeedKmh:         speed * 3.6,
			})
		}
	}
}

func storageOrPassthrough(err error, shiftID string) error {
	if errors.Is(err, ErrShiftNotFound) || errors.Is(err, checkin.ErrStorageUnavailable) {
		return err
	}
	return errors.New(fmt.Errorf("%w: %w", checkin.ErrStorageUnavailable, err)).
		Category(errors.CategoryDatabase).
		Shift(shiftID).
		Build()
}
