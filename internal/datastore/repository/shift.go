package repository

import (
	"context"

	"github.com/fleetops/geocheckin/internal/session"
)

// ShiftRepository provides access to the shifts table. It satisfies
// session.ShiftDirectory.
type ShiftRepository interface {
	// GetShift retrieves a shift by id.
	// Returns an error wrapping session.ErrShiftNotFound if the id is unknown.
	GetShift(ctx context.Context, id string) (*session.Shift, error)

	// ListShiftsBySubject returns a subject's shifts ordered by scheduled start.
	ListShiftsBySubject(ctx context.Context, subjectID string) ([]session.Shift, error)

	// UpsertShift creates the shift or replaces an existing one.
	UpsertShift(ctx context.Context, shift *session.Shift) error
}
