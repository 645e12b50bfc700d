package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleetops/geocheckin/internal/datastore/entities"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
	"github.com/fleetops/geocheckin/internal/session"
)

// shiftRepository implements ShiftRepository.
type shiftRepository struct {
	db      *gorm.DB
	metrics *metrics.DatastoreMetrics
}

// NewShiftRepository creates a new ShiftRepository. m may be nil.
func NewShiftRepository(db *gorm.DB, m *metrics.DatastoreMetrics) ShiftRepository {
	return &shiftRepository{db: db, metrics: m}
}

// GetShift retrieves a shift by id.
func (r *shiftRepository) GetShift(ctx context.Context, id string) (shift *session.Shift, err error) {
	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpShiftGet, tableShifts, start, err) }()

	var e entities.Shift
	err = r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(fmt.Errorf("%w: %s", session.ErrShiftNotFound, id)).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Shift(id).
			Build()
	}
	if err != nil {
		return nil, storageError(err, metrics.OpShiftGet, tableShifts)
	}
	return shiftFromEntity(&e), nil
}

// ListShiftsBySubject returns a subject's shifts ordered by scheduled start.
func (r *shiftRepository) ListShiftsBySubject(ctx context.Context, subjectID string) ([]session.Shift, error) {
	var rows []entities.Shift
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("scheduled_start ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageError(err, metrics.OpShiftGet, tableShifts)
	}

	result := make([]session.Shift, 0, len(rows))
	for i := range rows {
		result = append(result, *shiftFromEntity(&rows[i]))
	}
	return result, nil
}

// UpsertShift creates or replaces a shift.
func (r *shiftRepository) UpsertShift(ctx context.Context, shift *session.Shift) (err error) {
	switch {
	case shift == nil || shift.ID == "":
		return invalidInput("shift id is required")
	case shift.SubjectID == "":
		return invalidInput("shift %s: subject id is required", shift.ID)
	case !shift.ScheduledEnd.After(shift.ScheduledStart):
		return invalidInput("shift %s: scheduled end must be after scheduled start", shift.ID)
	}

	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpShiftUpsert, tableShifts, start, err) }()

	e := shiftToEntity(shift)
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&e).Error
	if err != nil {
		return storageError(err, metrics.OpShiftUpsert, tableShifts)
	}
	return nil
}
