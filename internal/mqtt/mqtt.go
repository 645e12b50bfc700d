// Package mqtt publishes committed check-in records to an MQTT broker.
//
// Client wraps the paho client with context-aware connect and publish.
// RecordPublisher turns a record into a JSON event and publishes it to
// <topic>/<siteId>/<type>, so consumers can subscribe per site or per type.
package mqtt

import (
	"context"
	"time"

	"github.com/fleetops/geocheckin/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the given topic and waits for the broker to
	// acknowledge it or ctx to end.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // base topic for record events
	Retain   bool   // true to retain messages at the broker
	QoS      byte

	ConnectTimeout       time.Duration
	MaxReconnectInterval time.Duration
	DisconnectQuiesce    time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		QoS:                  1,
		ConnectTimeout:       30 * time.Second,
		MaxReconnectInterval: 5 * time.Minute,
		DisconnectQuiesce:    250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a client Config from the mqtt settings section.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.ClientID = s.ClientID
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.Topic = s.Topic
	cfg.Retain = s.Retain
	return cfg
}
