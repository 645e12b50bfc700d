// Package checkin validates reported positions against site geofences and
// records the outcome as immutable audit records.
//
// The Validator is pure: it classifies reading accuracy and decides whether a
// reading falls inside a site's radius. The Recorder resolves the site, runs the
// Validator and appends the record through a RecordStore while holding a per-shift
// lock, so at most one check-in per shift is ever open.
package checkin

import (
	"fmt"
	"time"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/geo"
)

var (
	// ErrInvalidReading is returned for a negative or non-finite accuracy
	ErrInvalidReading = errors.NewStd("invalid reading")
	// ErrInvalidRequest is returned when a record request misses its shift, subject or type
	ErrInvalidRequest = errors.NewStd("invalid check-in request")
	// ErrDuplicateCheckIn is returned when the shift already has an open check-in
	ErrDuplicateCheckIn = errors.NewStd("duplicate check-in")
	// ErrOrphanCheckOut is returned for a check-out without an open check-in
	ErrOrphanCheckOut = errors.NewStd("check-out without open check-in")
	// ErrStorageUnavailable wraps audit store failures. Callers may retry.
	ErrStorageUnavailable = errors.NewStd("storage unavailable")
	// ErrReadingUnavailable is returned when no usable position reading could be acquired
	ErrReadingUnavailable = errors.NewStd("position reading unavailable")
)

// RecordType distinguishes check-ins from check-outs
type RecordType string

const (
	TypeCheckIn  RecordType = "check_in"
	TypeCheckOut RecordType = "check_out"
)

// Valid reports whether t is a known record type
func (t RecordType) Valid() bool {
	return t == TypeCheckIn || t == TypeCheckOut
}

// AccuracyClass buckets a reading's self-reported error radius
type AccuracyClass string

const (
	AccuracyPrecise    AccuracyClass = "precise"
	AccuracyDegraded   AccuracyClass = "degraded"
	AccuracyUnreliable AccuracyClass = "unreliable"
)

// PositionReading is a single device position fix. AccuracyMeters is the
// sensor's 1-sigma error radius, not a guarantee.
type PositionReading struct {
	Point          geo.Point `json:"point"`
	AccuracyMeters float64   `json:"accuracyMeters"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// Verdict is the outcome of validating a reading against a site
type Verdict struct {
	DistanceMeters float64       `json:"distanceMeters"`
	WithinGeofence bool          `json:"withinGeofence"`
	AccuracyClass  AccuracyClass `json:"accuracyClass"`
}

// Record is an immutable audit entry. Corrections are new records.
type Record struct {
	ID        string          `json:"id"`
	SubjectID string          `json:"subjectId"`
	SiteID    string          `json:"siteId"`
	ShiftID   string          `json:"shiftId"`
	Reading   PositionReading `json:"reading"`
	Verdict   Verdict         `json:"verdict"`
	Type      RecordType      `json:"type"`
	// PairedCheckInID is set on check-outs to the check-in they close
	PairedCheckInID string    `json:"pairedCheckInId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SequenceError reports a violated check-in sequence for a shift. For duplicate
// check-ins ExistingRecordID holds the open check-in that blocked the attempt.
type SequenceError struct {
	Err              error // ErrDuplicateCheckIn or ErrOrphanCheckOut
	ShiftID          string
	ExistingRecordID string
}

func (e *SequenceError) Error() string {
	if e.ExistingRecordID != "" {
		return fmt.Sprintf("%v: shift %s, open record %s", e.Err, e.ShiftID, e.ExistingRecordID)
	}
	return fmt.Sprintf("%v: shift %s", e.Err, e.ShiftID)
}

func (e *SequenceError) Unwrap() error {
	return e.Err
}

// ErrorCategory implements errors.CategorizedError
func (e *SequenceError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConflict
}

// NewDuplicateCheckIn returns a SequenceError for a shift that is already open
func NewDuplicateCheckIn(shiftID, existingRecordID string) *SequenceError {
	return &SequenceError{Err: ErrDuplicateCheckIn, ShiftID: shiftID, ExistingRecordID: existingRecordID}
}

// NewOrphanCheckOut returns a SequenceError for a shift with no open check-in
func NewOrphanCheckOut(shiftID string) *SequenceError {
	return &SequenceError{Err: ErrOrphanCheckOut, ShiftID: shiftID}
}
