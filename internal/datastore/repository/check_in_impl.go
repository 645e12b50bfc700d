package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/datastore/entities"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

const (
	conflictDuplicate = "duplicate_check_in"
	conflictOrphan    = "orphan_check_out"
)

// checkInRepository implements CheckInRepository.
type checkInRepository struct {
	db      *gorm.DB
	metrics *metrics.DatastoreMetrics
}

// NewCheckInRepository creates a new CheckInRepository. m may be nil.
func NewCheckInRepository(db *gorm.DB, m *metrics.DatastoreMetrics) CheckInRepository {
	return &checkInRepository{db: db, metrics: m}
}

// AppendCheckIn inserts a check-in and latches its shift.
func (r *checkInRepository) AppendCheckIn(ctx context.Context, rec *checkin.Record) (err error) {
	if rec == nil || rec.Type != checkin.TypeCheckIn {
		return invalidInput("AppendCheckIn requires a check_in record")
	}

	start := time.Now()
	defer func() { r.observeAppend(start, err) }()

	row := recordToEntity(rec)
	latch := entities.OpenCheckIn{
		ShiftID:  rec.ShiftID,
		RecordID: rec.ID,
		OpenedAt: rec.CreatedAt.UTC(),
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Latch first: a held latch aborts before the record is written
		if err := tx.Create(&latch).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errLatchHeld
			}
			return err
		}
		return tx.Create(&row).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errLatchHeld):
		r.metrics.RecordLatchConflict(conflictDuplicate)
		// The failed statement may have aborted the transaction, so the holder
		// is looked up afterwards.
		existing, lookupErr := r.OpenCheckInID(ctx, rec.ShiftID)
		if lookupErr != nil {
			return lookupErr
		}
		return checkin.NewDuplicateCheckIn(rec.ShiftID, existing)
	default:
		return storageError(err, metrics.OpRecordAppend, tableCheckInRecords)
	}
}

// AppendCheckOut releases the shift's latch and inserts the closing check-out.
func (r *checkInRepository) AppendCheckOut(ctx context.Context, rec *checkin.Record) (err error) {
	if rec == nil || rec.Type != checkin.TypeCheckOut {
		return invalidInput("AppendCheckOut requires a check_out record")
	}

	start := time.Now()
	defer func() { r.observeAppend(start, err) }()

	var paired string
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latch entities.OpenCheckIn
		if err := tx.Where("shift_id = ?", rec.ShiftID).First(&latch).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errLatchMissing
			}
			return err
		}

		// A concurrent check-out that deleted the row first leaves nothing to delete
		res := tx.Where("shift_id = ? AND record_id = ?", latch.ShiftID, latch.RecordID).
			Delete(&entities.OpenCheckIn{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLatchMissing
		}

		row := recordToEntity(rec)
		row.PairedCheckInID = &latch.RecordID
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		paired = latch.RecordID
		return nil
	})

	switch {
	case err == nil:
		rec.PairedCheckInID = paired
		return nil
	case errors.Is(err, errLatchMissing):
		r.metrics.RecordLatchConflict(conflictOrphan)
		return checkin.NewOrphanCheckOut(rec.ShiftID)
	default:
		return storageError(err, metrics.OpRecordAppend, tableCheckInRecords)
	}
}

// ListRecords returns a shift's records ordered by creation time, then insertion order.
func (r *checkInRepository) ListRecords(ctx context.Context, shiftID string) (records []checkin.Record, err error) {
	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpRecordList, tableCheckInRecords, start, err) }()

	var rows []entities.CheckInRecord
	err = r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("created_at ASC, seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storageError(err, metrics.OpRecordList, tableCheckInRecords)
	}

	records = make([]checkin.Record, 0, len(rows))
	for i := range rows {
		records = append(records, recordFromEntity(&rows[i]))
	}
	return records, nil
}

// OpenCheckInID returns the record id holding the shift's latch.
func (r *checkInRepository) OpenCheckInID(ctx context.Context, shiftID string) (id string, err error) {
	start := time.Now()
	defer func() { observe(r.metrics, metrics.OpOpenCheckIn, tableOpenCheckIns, start, err) }()

	var latch entities.OpenCheckIn
	err = r.db.WithContext(ctx).Where("shift_id = ?", shiftID).First(&latch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageError(err, metrics.OpOpenCheckIn, tableOpenCheckIns)
	}
	return latch.RecordID, nil
}

// observeAppend records an append and its transaction outcome. Sequence
// conflicts are rolled back but are not storage failures.
func (r *checkInRepository) observeAppend(start time.Time, err error) {
	var seqErr *checkin.SequenceError
	conflict := errors.As(err, &seqErr)

	r.metrics.RecordAppendTx(err == nil)

	if conflict {
		err = nil
	}
	observe(r.metrics, metrics.OpRecordAppend, tableCheckInRecords, start, err)
}
