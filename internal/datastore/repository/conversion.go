package repository

import (
	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/datastore/entities"
	"github.com/fleetops/geocheckin/internal/geo"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

func siteFromEntity(e *entities.Site) *sites.Site {
	return &sites.Site{
		ID:           e.ID,
		Name:         e.Name,
		Center:       geo.Point{Latitude: e.Latitude, Longitude: e.Longitude},
		RadiusMeters: e.RadiusMeters,
		Active:       e.Active,
		UpdatedAt:    e.UpdatedAt.UTC(),
	}
}

func siteToEntity(s *sites.Site) entities.Site {
	return entities.Site{
		ID:           s.ID,
		Name:         s.Name,
		Latitude:     s.Center.Latitude,
		Longitude:    s.Center.Longitude,
		RadiusMeters: s.RadiusMeters,
		Active:       s.Active,
	}
}

func shiftFromEntity(e *entities.Shift) *session.Shift {
	return &session.Shift{
		ID:             e.ID,
		SubjectID:      e.SubjectID,
		ScheduledStart: e.ScheduledStart.UTC(),
		ScheduledEnd:   e.ScheduledEnd.UTC(),
	}
}

func shiftToEntity(s *session.Shift) entities.Shift {
	return entities.Shift{
		ID:             s.ID,
		SubjectID:      s.SubjectID,
		ScheduledStart: s.ScheduledStart.UTC(),
		ScheduledEnd:   s.ScheduledEnd.UTC(),
	}
}

func recordFromEntity(e *entities.CheckInRecord) checkin.Record {
	rec := checkin.Record{
		ID:        e.RecordID,
		SubjectID: e.SubjectID,
		SiteID:    e.SiteID,
		ShiftID:   e.ShiftID,
		Reading: checkin.PositionReading{
			Point:          geo.Point{Latitude: e.Latitude, Longitude: e.Longitude},
			AccuracyMeters: e.AccuracyMeters,
			CapturedAt:     e.CapturedAt.UTC(),
		},
		Verdict: checkin.Verdict{
			DistanceMeters: e.DistanceMeters,
			WithinGeofence: e.WithinGeofence,
			AccuracyClass:  checkin.AccuracyClass(e.AccuracyClass),
		},
		Type:      checkin.RecordType(e.RecordType),
		CreatedAt: e.CreatedAt.UTC(),
	}
	if e.PairedCheckInID != nil {
		rec.PairedCheckInID = *e.PairedCheckInID
	}
	return rec
}

func recordToEntity(r *checkin.Record) entities.CheckInRecord {
	e := entities.CheckInRecord{
		RecordID:       r.ID,
		ShiftID:        r.ShiftID,
		SubjectID:      r.SubjectID,
		SiteID:         r.SiteID,
		Latitude:       r.Reading.Point.Latitude,
		Longitude:      r.Reading.Point.Longitude,
		AccuracyMeters: r.Reading.AccuracyMeters,
		CapturedAt:     r.Reading.CapturedAt.UTC(),
		DistanceMeters: r.Verdict.DistanceMeters,
		WithinGeofence: r.Verdict.WithinGeofence,
		AccuracyClass:  string(r.Verdict.AccuracyClass),
		RecordType:     string(r.Type),
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.PairedCheckInID != "" {
		paired := r.PairedCheckInID
		e.PairedCheckInID = &paired
	}
	return e
}
