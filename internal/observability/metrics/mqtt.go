package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTT error stages
const (
	StageConnect        = "connect"
	StagePublish        = "publish"
	StageEncode         = "encode"
	StageConnectionLost = "connection_lost"
)

// MQTTMetrics tracks check-in fan-out to the broker.
type MQTTMetrics struct {
	connected       prometheus.Gauge
	reconnects      prometheus.Counter
	errors          *prometheus.CounterVec
	records         *prometheus.CounterVec
	publishDuration prometheus.Histogram
	payloadSize     prometheus.Histogram
}

// NewMQTTMetrics creates and registers the fan-out metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 while the fan-out client holds a broker connection, 0 otherwise",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtt_reconnects_total",
			Help: "Reconnect attempts after a lost broker connection",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "MQTT failures by stage",
		}, []string{"stage"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_records_published_total",
			Help: "Committed check-in records handed to the broker, by record type and result",
		}, []string{"type", "status"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_duration_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
		payloadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_payload_size_bytes",
			Help:    "Size of published record payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.connected, m.reconnects, m.errors, m.records, m.publishDuration, m.payloadSize,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// SetConnected records the connection state
func (m *MQTTMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

// RecordReconnect counts a reconnect attempt
func (m *MQTTMetrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// RecordError counts a failure at stage
func (m *MQTTMetrics) RecordError(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

// RecordPublished counts one record publication attempt
func (m *MQTTMetrics) RecordPublished(recordType string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.records.WithLabelValues(recordType, status).Inc()
}

// ObservePublish records an acknowledged publish
func (m *MQTTMetrics) ObservePublish(payloadBytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.payloadSize.Observe(float64(payloadBytes))
	m.publishDuration.Observe(elapsed.Seconds())
}
