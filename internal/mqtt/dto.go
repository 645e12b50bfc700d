package mqtt

import (
	"time"

	"github.com/fleetops/geocheckin/internal/checkin"
)

// RecordEventDTO is the MQTT payload for a committed check-in record.
//
// Field names are part of the event contract consumed by payroll and
// dispatch integrations. Add fields, do not rename them.
type RecordEventDTO struct {
	RecordID        string    `json:"recordId"`
	Type            string    `json:"type"` // "check_in" or "check_out"
	ShiftID         string    `json:"shiftId"`
	SubjectID       string    `json:"subjectId"`
	SiteID          string    `json:"siteId"`
	PairedCheckInID string    `json:"pairedCheckInId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracyMeters"`
	CapturedAt     time.Time `json:"capturedAt"`

	DistanceMeters float64 `json:"distanceMeters"`
	WithinGeofence bool    `json:"withinGeofence"`
	AccuracyClass  string  `json:"accuracyClass"`
}

// NewRecordEventDTO flattens a record into its event payload.
func NewRecordEventDTO(rec *checkin.Record) RecordEventDTO {
	return RecordEventDTO{
		RecordID:        rec.ID,
		Type:            string(rec.Type),
		ShiftID:         rec.ShiftID,
		SubjectID:       rec.SubjectID,
		SiteID:          rec.SiteID,
		PairedCheckInID: rec.PairedCheckInID,
		CreatedAt:       rec.CreatedAt.UTC(),
		Latitude:        rec.Reading.Point.Latitude,
		Longitude:       rec.Reading.Point.Longitude,
		AccuracyMeters:  rec.Reading.AccuracyMeters,
		CapturedAt:      rec.Reading.CapturedAt.UTC(),
		DistanceMeters:  rec.Verdict.DistanceMeters,
		WithinGeofence:  rec.Verdict.WithinGeofence,
		AccuracyClass:   string(rec.Verdict.AccuracyClass),
	}
}
