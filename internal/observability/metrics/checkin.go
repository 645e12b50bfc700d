// Package metrics provides check-in metrics for observability
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckInMetrics contains Prometheus metrics for check-in recording, site resolution
// and session derivation. All methods are safe on a nil receiver so components can
// run without metrics in tests.
type CheckInMetrics struct {
	registry *prometheus.Registry

	attemptsTotal      *prometheus.CounterVec
	verdictsTotal      *prometheus.CounterVec
	distanceMeters     *prometheus.HistogramVec
	recordDuration     *prometheus.HistogramVec
	lockWaitDuration   prometheus.Histogram
	siteLookupsTotal   *prometheus.CounterVec
	anomaliesTotal     *prometheus.CounterVec
	sessionsBuiltTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewCheckInMetrics creates and registers new check-in metrics
func NewCheckInMetrics(registry *prometheus.Registry) (*CheckInMetrics, error) {
	m := &CheckInMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CheckInMetrics) initMetrics() {
	m.attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_attempts_total",
			Help: "Total number of check-in and check-out attempts by outcome",
		},
		[]string{"type", "outcome"}, // type: check_in, check_out; outcome: recorded, duplicate, orphan, invalid_reading, ...
	)

	m.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_verdicts_total",
			Help: "Total number of recorded verdicts by geofence result and accuracy class",
		},
		[]string{"type", "within_geofence", "accuracy_class"},
	)

	m.distanceMeters = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkin_distance_meters",
			Help:    "Distance between the reported position and the site center",
			Buckets: prometheus.ExponentialBuckets(BucketStart1m, BucketFactor2, BucketCount15), // 1m to ~16km
		},
		[]string{"type"},
	)

	m.recordDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkin_record_duration_seconds",
			Help:    "Time taken to resolve, validate and persist a check-in record",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"type"},
	)

	m.lockWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_shift_lock_wait_seconds",
			Help:    "Time spent waiting for the per-shift lock",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms/10, BucketFactor2, BucketCount15),
		},
	)

	m.siteLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_registry_lookups_total",
			Help: "Total number of site resolutions by result",
		},
		[]string{"result"}, // hit, miss, not_found, inactive, error
	)

	m.anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_anomalies_total",
			Help: "Total number of anomaly flags raised while deriving work sessions",
		},
		[]string{"kind"},
	)

	m.sessionsBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_builds_total",
			Help: "Total number of work session derivations",
		},
		[]string{"status"},
	)

	m.collectors = []prometheus.Collector{
		m.attemptsTotal,
		m.verdictsTotal,
		m.distanceMeters,
		m.recordDuration,
		m.lockWaitDuration,
		m.siteLookupsTotal,
		m.anomaliesTotal,
		m.sessionsBuiltTotal,
	}
}

// RecordAttempt counts a check-in attempt and its outcome
func (m *CheckInMetrics) RecordAttempt(recordType, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(recordType, outcome).Inc()
}

// RecordVerdict records the verdict of a persisted record
func (m *CheckInMetrics) RecordVerdict(recordType string, within bool, accuracyClass string, distanceMeters float64) {
	if m == nil {
		return
	}
	m.verdictsTotal.WithLabelValues(recordType, strconv.FormatBool(within), accuracyClass).Inc()
	m.distanceMeters.WithLabelValues(recordType).Observe(distanceMeters)
}

// RecordDuration records how long a record attempt took, in seconds
func (m *CheckInMetrics) RecordDuration(recordType string, seconds float64) {
	if m == nil {
		return
	}
	m.recordDuration.WithLabelValues(recordType).Observe(seconds)
}

// RecordLockWait records time spent waiting for a shift lock, in seconds
func (m *CheckInMetrics) RecordLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWaitDuration.Observe(seconds)
}

// RecordSiteLookup counts a site registry resolution
func (m *CheckInMetrics) RecordSiteLookup(result string) {
	if m == nil {
		return
	}
	m.siteLookupsTotal.WithLabelValues(result).Inc()
}

// RecordAnomaly counts an anomaly flag
func (m *CheckInMetrics) RecordAnomaly(kind string) {
	if m == nil {
		return
	}
	m.anomaliesTotal.WithLabelValues(kind).Inc()
}

// RecordSessionBuild counts a session derivation
func (m *CheckInMetrics) RecordSessionBuild(status string) {
	if m == nil {
		return
	}
	m.sessionsBuiltTotal.WithLabelValues(status).Inc()
}

// Describe implements the Collector interface
func (m *CheckInMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *CheckInMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}
