// Package attendance exposes the check-in operations to transports.
//
// Service looks up the shift in the directory to learn the subject, acquires
// the position reading, hands the attempt to the checkin.Recorder and, once the
// record is committed, fans it out through an optional Publisher. Session and
// history reads go straight to the session manager and the recorder.
package attendance

import (
	"context"
	"time"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/logger"
	"github.com/fleetops/geocheckin/internal/session"
	"github.com/fleetops/geocheckin/internal/sites"
)

// DefaultPublishTimeout bounds a single fan-out publish
const DefaultPublishTimeout = 5 * time.Second

// Publisher receives committed records. Failures never affect the committed result.
type Publisher interface {
	PublishRecord(ctx context.Context, rec *checkin.Record) error
}

// Attempt is one check-in or check-out request from a transport
type Attempt struct {
	ShiftID string
	SiteID  string
	// Source yields the device position. checkin.ReportedReading wraps a
	// reading the client already acquired.
	Source checkin.ReadingSource
}

// Config configures a Service
type Config struct {
	// MaxReadingAge rejects readings captured longer ago. Zero disables the check.
	MaxReadingAge  time.Duration
	PublishTimeout time.Duration
	Now            func() time.Time
}

// Service implements checkIn, checkOut and getSession
type Service struct {
	directory session.ShiftDirectory
	registry  sites.Registry
	recorder  *checkin.Recorder
	sessions  *session.Manager
	publisher Publisher
	cfg       Config
	log       logger.Logger
}

// NewService creates a Service. publisher and log may be nil.
func NewService(
	directory session.ShiftDirectory,
	registry sites.Registry,
	recorder *checkin.Recorder,
	sessions *session.Manager,
	publisher Publisher,
	cfg Config,
	log logger.Logger,
) *Service {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	}
	return &Service{
		directory: directory,
		registry:  registry,
		recorder:  recorder,
		sessions:  sessions,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// CheckIn opens the shift at the site
func (s *Service) CheckIn(ctx context.Context, a Attempt) (*checkin.Record, error) {
	return s.record(ctx, a, checkin.TypeCheckIn)
}

// CheckOut closes the shift's open check-in
func (s *Service) CheckOut(ctx context.Context, a Attempt) (*checkin.Record, error) {
	return s.record(ctx, a, checkin.TypeCheckOut)
}

// GetSession derives the shift's work session
func (s *Service) GetSession(ctx context.Context, shiftID string) (*session.WorkSession, error) {
	return s.sessions.BuildSession(ctx, shiftID)
}

// ListRecords returns the shift's audit records in creation order
func (s *Service) ListRecords(ctx context.Context, shiftID string) ([]checkin.Record, error) {
	if _, err := s.directory.GetShift(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, shiftID)
}

// Site resolves an active site
func (s *Service) Site(ctx context.Context, siteID string) (sites.Site, error) {
	return s.registry.Resolve(ctx, siteID)
}

func (s *Service) record(ctx context.Context, a Attempt, typ checkin.RecordType) (*checkin.Record, error) {
	shift, err := s.directory.GetShift(ctx, a.ShiftID)
	if err != nil {
		return nil, err
	}

	reading, err := checkin.AcquireReading(ctx, a.Source, s.cfg.MaxReadingAge, s.cfg.Now)
	if err != nil {
		s.log.WithContext(ctx).Debug("position reading unavailable",
			logger.String("shift_id", a.ShiftID),
			logger.Error(err))
		return nil, err
	}

	rec, err := s.recorder.Record(ctx, checkin.Request{
		SubjectID: shift.SubjectID,
		ShiftID:   shift.ID,
		SiteID:    a.SiteID,
		Reading:   reading,
		Type:      typ,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, rec)
	return rec, nil
}

// publish fans out a committed record. It outlives a canceled request context
// but not the publish timeout.
func (s *Service) publish(ctx context.Context, rec *checkin.Record) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
	defer cancel()

	if err := s.publisher.PublishRecord(pubCtx, rec); err != nil {
		s.log.WithContext(ctx).Warn("failed to publish check-in record",
			logger.String("record_id", rec.ID),
			logger.String("shift_id", rec.ShiftID),
			logger.Error(err))
	}
}
