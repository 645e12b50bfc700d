// Package session derives work sessions from a shift's check-in history.
//
// Sessions are never stored. BuildSession reads the shift from the directory and
// its records from the audit store, pairs check-ins with check-outs and flags
// anomalies. It never writes.
package session

import (
	"context"
	"time"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
)

// ErrShiftNotFound is returned when the shift directory does not know the shift
var ErrShiftNotFound = errors.NewStd("shift not found")

// Shift is the directory's view of a scheduled shift
type Shift struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"subjectId"`
	ScheduledStart time.Time `json:"scheduledStart"`
	ScheduledEnd   time.Time `json:"scheduledEnd"`
}

// ShiftDirectory is the read-only shift and employee directory.
// GetShift returns ErrShiftNotFound (possibly wrapped) for unknown ids.
type ShiftDirectory interface {
	GetShift(ctx context.Context, id string) (*Shift, error)
}

// HistorySource returns a shift's records in creation order
type HistorySource interface {
	ListRecords(ctx context.Context, shiftID string) ([]checkin.Record, error)
}

// AnomalyKind names a session anomaly
type AnomalyKind string

const (
	// MissingCheckout marks a check-in that was never closed and can no longer be:
	// the shift's scheduled end has passed, or a later check-in superseded it.
	MissingCheckout AnomalyKind = "missing_checkout"
	// ImpossibleTravel marks consecutive records whose implied speed exceeds the ceiling
	ImpossibleTravel AnomalyKind = "impossible_travel"
	// NonMonotonicTimestamp marks consecutive records whose capture times do not increase
	NonMonotonicTimestamp AnomalyKind = "non_monotonic_timestamp"
	// UnpairedCheckOut marks a check-out with no check-in to close, only seen in imported history
	UnpairedCheckOut AnomalyKind = "unpaired_check_out"
)

// Anomaly is a flag raised while deriving a session
type Anomaly struct {
	Kind AnomalyKind `json:"kind"`
	// RecordID is the record the anomaly is about. For travel and timestamp
	// anomalies it is the later of the two records.
	RecordID         string  `json:"recordId"`
	PreviousRecordID string  `json:"previousRecordId,omitempty"`
	SpeedKmh         float64 `json:"speedKmh,omitempty"`
	Detail           string  `json:"detail,omitempty"`
}

// Pair is a check-in and the check-out that closed it, if any
type Pair struct {
	CheckIn  checkin.Record  `json:"checkIn"`
	CheckOut *checkin.Record `json:"checkOut"`
}

// WorkSession is the derived view of a shift
type WorkSession struct {
	SubjectID string    `json:"subjectId"`
	ShiftID   string    `json:"shiftId"`
	Pairs     []Pair    `json:"pairs"`
	Anomalies []Anomaly `json:"anomalies"`
}

// Current returns the most recent pair, or nil for a shift without check-ins
func (s *WorkSession) Current() *Pair {
	if len(s.Pairs) == 0 {
		return nil
	}
	return &s.Pairs[len(s.Pairs)-1]
}

// IsOpen reports whether the shift has an unclosed check-in
func (s *WorkSession) IsOpen() bool {
	p := s.Current()
	return p != nil && p.CheckOut == nil
}

// HasAnomaly reports whether an anomaly of kind was flagged
func (s *WorkSession) HasAnomaly(kind AnomalyKind) bool {
	for _, a := range s.Anomalies {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
