package checkin

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/geocheckin/internal/errors"
)

// Device failures reported by the location collaborator
var (
	ErrPermissionDenied    = errors.NewStd("location permission denied")
	ErrPositionUnavailable = errors.NewStd("position unavailable")
	ErrPositionTimeout     = errors.NewStd("position acquisition timed out")
)

// Device error codes as reported by browser and mobile location APIs
const (
	DeviceErrPermissionDenied    = "permission_denied"
	DeviceErrPositionUnavailable = "position_unavailable"
	DeviceErrTimeout             = "timeout"
)

// ReadingSource produces a position reading. Implementations honor ctx.
type ReadingSource interface {
	Read(ctx context.Context) (PositionReading, error)
}

// ReadingSourceFunc adapts a function to ReadingSource
type ReadingSourceFunc func(ctx context.Context) (PositionReading, error)

// Read calls f(ctx)
func (f ReadingSourceFunc) Read(ctx context.Context) (PositionReading, error) {
	return f(ctx)
}

// ReportedReading returns a source for a reading that a client already acquired.
// A non-empty deviceErr code makes the source fail with the matching device error.
func ReportedReading(reading *PositionReading, deviceErr string) ReadingSource {
	return ReadingSourceFunc(func(ctx context.Context) (PositionReading, error) {
		if deviceErr != "" {
			return PositionReading{}, DeviceError(deviceErr)
		}
		if reading == nil {
			return PositionReading{}, ErrPositionUnavailable
		}
		return *reading, nil
	})
}

// DeviceError maps a device error code to its sentinel. Unknown codes map to
// ErrPositionUnavailable.
func DeviceError(code string) error {
	switch code {
	case DeviceErrPermissionDenied:
		return ErrPermissionDenied
	case DeviceErrTimeout:
		return ErrPositionTimeout
	default:
		return fmt.Errorf("%w: %s", ErrPositionUnavailable, code)
	}
}

// AcquireReading reads from src and normalizes every failure to ErrReadingUnavailable:
// device errors, ctx cancellation or deadline, and readings older than maxAge.
// A maxAge of zero disables the age check. A reading without a capture time is
// stamped with now.
func AcquireReading(ctx context.Context, src ReadingSource, maxAge time.Duration, now func() time.Time) (PositionReading, error) {
	if now == nil {
		now = time.Now
	}

	reading, err := src.Read(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return PositionReading{}, errors.New(fmt.Errorf("%w: %w", ErrReadingUnavailable, err)).
			Category(readingCategory(err)).
			Build()
	}

	ts := now()
	if reading.CapturedAt.IsZero() {
		reading.CapturedAt = ts
	}

	if maxAge > 0 {
		if age := ts.Sub(reading.CapturedAt); age > maxAge {
			return PositionReading{}, errors.New(fmt.Errorf("%w: reading is %s old, limit %s",
				ErrReadingUnavailable, age.Round(time.Second), maxAge)).
				Category(errors.CategoryReading).
				Context("captured_at", reading.CapturedAt).
				Build()
		}
	}

	return reading, nil
}

func readingCategory(err error) errors.ErrorCategory {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrPositionTimeout):
		return errors.CategoryTimeout
	case errors.Is(err, context.Canceled):
		return errors.CategoryCancellation
	default:
		return errors.CategoryReading
	}
}
