// Package metrics defines the Prometheus collectors for geocheckin. Every
// recorder method is safe to call on a nil receiver.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transaction outcomes for record appends
const (
	TxCommitted  = "committed"
	TxRolledBack = "rolled_back"
)

// DatastoreMetrics tracks repository operations and the open check-in latch
type DatastoreMetrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	operationErrors *prometheus.CounterVec
	appendTx        *prometheus.CounterVec
	latchConflicts  *prometheus.CounterVec
}

// NewDatastoreMetrics creates and registers the datastore metrics.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datastore_db_operations_total",
			Help: "Repository operations by operation, table and status",
		}, []string{"operation", "table", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datastore_db_operation_duration_seconds",
			Help:    "Repository operation latency",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		}, []string{"operation", "table"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datastore_db_operation_errors_total",
			Help: "Failed repository operations by error type",
		}, []string{"operation", "table", "error_type"}),
		appendTx: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datastore_db_transactions_total",
			Help: "Record append transactions by outcome",
		}, []string{"status"}),
		latchConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "datastore_open_check_in_conflicts_total",
			Help: "Duplicate check-ins and orphan check-outs rejected by the open check-in latch",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.operations, m.duration, m.operationErrors, m.appendTx, m.latchConflicts,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveOperation records one repository call. An empty errorType counts
// as success.
func (m *DatastoreMetrics) ObserveOperation(operation, table, errorType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if errorType != "" {
		status = StatusError
		m.operationErrors.WithLabelValues(operation, table, errorType).Inc()
	}
	m.operations.WithLabelValues(operation, table, status).Inc()
	m.duration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordAppendTx counts a record append transaction
func (m *DatastoreMetrics) RecordAppendTx(committed bool) {
	if m == nil {
		return
	}
	status := TxCommitted
	if !committed {
		status = TxRolledBack
	}
	m.appendTx.WithLabelValues(status).Inc()
}

// RecordLatchConflict counts a rejected latch change, by kind
func (m *DatastoreMetrics) RecordLatchConflict(kind string) {
	if m == nil {
		return
	}
	m.latchConflicts.WithLabelValues(kind).Inc()
}
