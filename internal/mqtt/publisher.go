package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fleetops/geocheckin/internal/checkin"
	"github.com/fleetops/geocheckin/internal/errors"
	"github.com/fleetops/geocheckin/internal/observability/metrics"
)

// RecordPublisher publishes check-in records through a Client.
type RecordPublisher struct {
	client    Client
	baseTopic string
	metrics   *metrics.MQTTMetrics
}

// NewRecordPublisher creates a publisher rooted at baseTopic. m may be nil.
func NewRecordPublisher(client Client, baseTopic string, m *metrics.MQTTMetrics) *RecordPublisher {
	return &RecordPublisher{
		client:    client,
		baseTopic: strings.TrimRight(baseTopic, "/"),
		metrics:   m,
	}
}

// PublishRecord publishes rec as JSON to <base>/<siteId>/<type>.
func (p *RecordPublisher) PublishRecord(ctx context.Context, rec *checkin.Record) error {
	payload, err := json.Marshal(NewRecordEventDTO(rec))
	if err != nil {
		p.metrics.RecordError(metrics.StageEncode)
		p.metrics.RecordPublished(string(rec.Type), err)
		return errors.New(fmt.Errorf("failed to encode record %s: %w", rec.ID, err)).
			Component("mqtt").
			Category(errors.CategoryPublish).
			Build()
	}
	err = p.client.Publish(ctx, p.Topic(rec), payload)
	p.metrics.RecordPublished(string(rec.Type), err)
	return err
}

// Topic returns the topic rec is published to.
func (p *RecordPublisher) Topic(rec *checkin.Record) string {
	return p.baseTopic + "/" + topicSegment(rec.SiteID) + "/" + topicSegment(string(rec.Type))
}

// topicSegment replaces characters that would change the topic structure.
func topicSegment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
}
