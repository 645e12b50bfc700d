// Package telemetry reports infrastructure errors to Sentry.
//
// Reporter implements errors.TelemetryReporter. Only categories that point at
// an operational fault (database and system by default) are sent; validation
// failures, conflicts and not-found errors are client behavior and stay local.
// Events carry the error's component, category and context keys. Position
// data is never attached.
package telemetry

import (
	"fmt"
	"maps"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/errors"
)

// DefaultReportedCategories are the error categories sent to Sentry
var DefaultReportedCategories = []errors.ErrorCategory{
	errors.CategoryDatabase,
	errors.CategorySystem,
}

// sensitiveContextKeys are dropped from event contexts
var sensitiveContextKeys = map[string]struct{}{
	"latitude":  {},
	"longitude": {},
	"point":     {},
	"reading":   {},
}

// Reporter sends EnhancedErrors to Sentry through its own hub.
type Reporter struct {
	hub        *sentry.Hub
	enabled    bool
	categories map[errors.ErrorCategory]struct{}
}

// Option configures a Reporter
type Option func(*sentry.ClientOptions, *Reporter)

// WithTransport replaces the HTTP transport, used by tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions, _ *Reporter) { o.Transport = t }
}

// WithCategories overrides DefaultReportedCategories.
func WithCategories(categories ...errors.ErrorCategory) Option {
	return func(_ *sentry.ClientOptions, r *Reporter) {
		r.categories = make(map[errors.ErrorCategory]struct{}, len(categories))
		for _, c := range categories {
			r.categories[c] = struct{}{}
		}
	}
}

// NewReporter creates a Reporter. With telemetry disabled it returns a
// reporter whose IsEnabled is false and which never contacts Sentry.
func NewReporter(settings *conf.TelemetrySettings, release string, opts ...Option) (*Reporter, error) {
	r := &Reporter{categories: make(map[errors.ErrorCategory]struct{})}
	for _, c := range DefaultReportedCategories {
		r.categories[c] = struct{}{}
	}
	if settings == nil || !settings.Enabled {
		return r, nil
	}

	clientOpts := sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          release,
		SampleRate:       1.0,
		AttachStacktrace: false,
		// Explicitly clear server name to prevent hostname leakage
		ServerName: "",
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.ServerName = ""
			event.User = sentry.User{}
			return event
		},
	}
	for _, opt := range opts {
		opt(&clientOpts, r)
	}

	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	r.hub = sentry.NewHub(client, sentry.NewScope())
	r.enabled = true
	return r, nil
}

// IsEnabled implements errors.TelemetryReporter
func (r *Reporter) IsEnabled() bool {
	return r != nil && r.enabled
}

// ReportError implements errors.TelemetryReporter
func (r *Reporter) ReportError(ee *errors.EnhancedError) {
	if !r.IsEnabled() || ee == nil || ee.IsReported() {
		return
	}
	if _, ok := r.categories[ee.Category]; !ok {
		return
	}
	ee.MarkReported()

	component := ee.GetComponent()
	category := string(ee.Category)

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", category)
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		if ctx := scrubContext(ee.GetContext()); len(ctx) > 0 {
			scope.SetContext("error", ctx)
		}
		scope.SetFingerprint([]string{category, component})

		event := sentry.NewEvent()
		event.Level = levelFor(ee.Priority)
		event.Message = ee.Error()
		event.Timestamp = ee.GetTimestamp()
		event.Exception = []sentry.Exception{{
			Type:  component + ": " + category,
			Value: ee.Error(),
		}}
		r.hub.CaptureEvent(event)
	})
}

// Flush waits for queued events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.IsEnabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

func scrubContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	maps.Copy(out, ctx)
	for k := range sensitiveContextKeys {
		delete(out, k)
	}
	return out
}

func levelFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityLow:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}
