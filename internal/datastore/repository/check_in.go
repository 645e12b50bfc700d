package repository

import (
	"context"

	"github.com/fleetops/geocheckin/internal/checkin"
)

// CheckInRepository provides access to the check_in_records table and the
// open_check_ins latch. It satisfies checkin.RecordStore and
// session.HistorySource.
//
// Records are append-only. The latch row for a shift exists exactly while the
// shift has an open check-in; it is written in the same transaction as the
// record that opens or closes the shift, so the database itself rejects a
// second open check-in even across processes.
type CheckInRepository interface {
	// AppendCheckIn inserts the record and the shift's latch row.
	// Returns a *checkin.SequenceError wrapping checkin.ErrDuplicateCheckIn,
	// carrying the open record's id, if the shift is already open.
	AppendCheckIn(ctx context.Context, rec *checkin.Record) error

	// AppendCheckOut removes the shift's latch row and inserts the record with
	// PairedCheckInID set to the check-in it closes. rec.PairedCheckInID is
	// updated on success.
	// Returns a *checkin.SequenceError wrapping checkin.ErrOrphanCheckOut if
	// the shift has no open check-in.
	AppendCheckOut(ctx context.Context, rec *checkin.Record) error

	// ListRecords returns a shift's records in creation order.
	ListRecords(ctx context.Context, shiftID string) ([]checkin.Record, error)

	// OpenCheckInID returns the id of the shift's open check-in, or "" if the
	// shift is closed.
	OpenCheckInID(ctx context.Context, shiftID string) (string, error)
}
