package repository

import (
	"time"

	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// observe records one repository operation. A nil recorder is a no-op. Lookups
// of unknown ids are answered queries, not failures.
func observe(m *metrics.DatastoreMetrics, operation, table string, start time.Time, err error) {
	kind := ""
	if err != nil && !errors.IsNotFound(err) {
		kind = errorType(err)
	}
	m.ObserveOperation(operation, table, kind, time.Since(start))
}

func errorType(err error) string {
	switch {
	case errors.IsCategory(err, errors.CategoryTimeout):
		return "timeout"
	case errors.IsCategory(err, errors.CategoryCancellation):
		return "canceled"
	default:
		return "database"
	}
}
