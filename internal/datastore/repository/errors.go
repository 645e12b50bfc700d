// Package repository implements the site, shift and audit record stores on top
// of GORM.
//
// Repositories return domain types. Missing rows are reported with the domain
// not-found sentinels; every other database failure wraps
// checkin.ErrStorageUnavailable so callers can classify it without looking at
// GORM or driver errors.
package repository

import (
	"context"
	"fmt"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
)

// Sentinel errors for repository operations.
var (
	// ErrInvalidInput indicates a write was rejected before reaching the database.
	ErrInvalidInput = errors.NewStd("invalid input")

	// errLatchHeld aborts a check-in transaction when the shift is already open.
	errLatchHeld = errors.NewStd("open check-in latch held")

	// errLatchMissing aborts a check-out transaction when the shift has no open check-in.
	errLatchMissing = errors.NewStd("open check-in latch missing")
)

// Table names.
const (
	tableSites          = "sites"
	tableShifts         = "shifts"
	tableCheckInRecords = "check_in_records"
	tableOpenCheckIns   = "open_check_ins"
)

// storageError wraps a database failure as ErrStorageUnavailable. Context
// cancellation keeps its own category so it is not reported as a database fault.
func storageError(err error, operation, table string) error {
	category := errors.CategoryDatabase
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		category = errors.CategoryCancellation
	}
	return errors.New(fmt.Errorf("%w: %w", checkin.ErrStorageUnavailable, err)).
		Component("datastore").
		Category(category).
		Op(operation).
		Context("table", table).
		Build()
}

func invalidInput(format string, args ...any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))).
		Component("datastore").
		Category(errors.CategoryValidation).
		Build()
}
