package api

import (
	"time"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/geo"
)

// PositionRequest is a device position fix as reported by the client.
// Coordinate ranges are checked by the validator in the checkin package so
// that out of range values surface as invalid_coordinate.
type PositionRequest struct {
	Latitude   *float64   `json:"latitude" validate:"required"`
	Longitude  *float64   `json:"longitude" validate:"required"`
	Accuracy   *float64   `json:"accuracy" validate:"required"`
	CapturedAt *time.Time `json:"capturedAt"`
}

// CheckInRequest is the body of check-in and check-out commands. Either a
// position or a positionError is expected; a request with neither is treated
// as an unavailable reading.
type CheckInRequest struct {
	SiteID        string           `json:"siteId" validate:"required,max=64"`
	Position      *PositionRequest `json:"position"`
	PositionError string           `json:"positionError" validate:"omitempty,max=64"`
}

// readingSource adapts the reported position to a checkin.ReadingSource.
func (r *CheckInRequest) readingSource() checkin.ReadingSource {
	if r.Position == nil {
		return checkin.ReportedReading(nil, r.PositionError)
	}

	reading := checkin.PositionReading{
		Point: geo.Point{
			Latitude:  *r.Position.Latitude,
			Longitude: *r.Position.Longitude,
		},
		AccuracyMeters: *r.Position.Accuracy,
	}
	if r.Position.CapturedAt != nil {
		reading.CapturedAt = r.Position.CapturedAt.UTC()
	}
	return checkin.ReportedReading(&reading, r.PositionError)
}

// RecordsResponse lists a shift's audit records in creation order.
type RecordsResponse struct {
	ShiftID string           `json:"shiftId"`
	Count   int              `json:"count"`
	Records []checkin.Record `json:"records"`
}
