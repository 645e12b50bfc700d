// Package errors wraps errors with a component, a category and structured
// context, and forwards built errors to an optional telemetry reporter.
//
// Errors are assembled with a builder:
//
//	errors.New(err).
//		Component("sites").
//		Category(errors.CategoryNotFound).
//		Site(id).
//		Build()
//
// The package also passes through the standard library helpers so callers
// only import one errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors for handling, logging and HTTP mapping
type ErrorCategory string

// CategorizedError is implemented by errors that carry their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryState         ErrorCategory = "state"
	CategoryDatabase      ErrorCategory = "database"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryLimit         ErrorCategory = "limit"
	CategoryGeneric       ErrorCategory = "generic"

	CategoryGeofence     ErrorCategory = "geofence"
	CategorySiteRegistry ErrorCategory = "site-registry"
	CategorySession      ErrorCategory = "work-session"
	CategoryReading      ErrorCategory = "position-reading"
	CategoryPublish      ErrorCategory = "event-publish"
)

// Priorities understood by the telemetry reporter
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

var validPriorities = map[string]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityCritical: true,
}

// Context keys shared across packages
const (
	KeySiteID    = "site_id"
	KeyShiftID   = "shift_id"
	KeyOperation = "operation"
)

// ComponentUnknown is reported when no component was set or found on the stack
const ComponentUnknown = "unknown"

// packageComponents maps import path fragments to component names. Order
// matters: the first fragment contained in a caller's function name wins.
var packageComponents = []struct{ fragment, component string }{
	{"internal/geo.", "geo"},
	{"internal/sites", "sites"},
	{"internal/checkin", "checkin"},
	{"internal/session", "session"},
	{"internal/attendance", "attendance"},
	{"internal/datastore", "datastore"},
	{"internal/api", "api"},
	{"internal/mqtt", "mqtt"},
	{"internal/seed", "seed"},
	{"internal/conf", "configuration"},
}

const ownPackage = "geocheckin/internal/errors."

// EnhancedError is an error annotated by the builder
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	component string
	mu        sync.RWMutex
	reported  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError by category, anything else through the
// wrapped chain.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component resolved at build time, or
// ComponentUnknown for errors not made by the builder.
func (ee *EnhancedError) GetComponent() string {
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

func (ee *EnhancedError) GetPriority() string { return ee.Priority }

func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

// GetContext returns a copy of the context map, or nil when none was set
func (ee *EnhancedError) GetContext() map[string]any {
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// MarkReported flags the error as sent so it is not reported twice
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	ee.reported = true
	ee.mu.Unlock()
}

func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError
type ErrorBuilder struct {
	ee EnhancedError
}

// New starts a builder around err
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{ee: EnhancedError{Err: err}}
}

// Newf starts a builder around a formatted error; %w wraps as usual
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.ee.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.ee.Category = category
	return eb
}

// Priority sets an explicit priority. Unknown values become medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch {
	case validPriorities[priority]:
		eb.ee.Priority = priority
	case priority != "":
		eb.ee.Priority = PriorityMedium
	}
	return eb
}

// Context attaches a key/value pair
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.ee.Context == nil {
		eb.ee.Context = make(map[string]any, 2)
	}
	eb.ee.Context[key] = value
	return eb
}

// Site attaches the site identifier
func (eb *ErrorBuilder) Site(id string) *ErrorBuilder { return eb.Context(KeySiteID, id) }

// Shift attaches the shift identifier
func (eb *ErrorBuilder) Shift(id string) *ErrorBuilder { return eb.Context(KeyShiftID, id) }

// Op names the operation that failed
func (eb *ErrorBuilder) Op(name string) *ErrorBuilder { return eb.Context(KeyOperation, name) }

// Build finalizes the error and hands it to the telemetry reporter when one
// is active. The call stack is only walked for a missing component while
// reporting is on.
func (eb *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       eb.ee.Err,
		Category:  eb.ee.Category,
		Priority:  eb.ee.Priority,
		Context:   eb.ee.Context,
		Timestamp: time.Now(),
		component: eb.ee.component,
	}

	reporting := hasActiveReporting.Load()
	if ee.component == "" && reporting {
		ee.component = callerComponent()
	}
	if ee.component == "" {
		ee.component = ComponentUnknown
	}
	if ee.Category == "" {
		ee.Category = detectCategory(ee.Err, ee.component)
	}

	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

// callerComponent returns the component of the first known caller outside
// this package.
func callerComponent() string {
	pcs := make([]uintptr, 24)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, ownPackage) {
			for _, pc := range packageComponents {
				if strings.Contains(frame.Function, pc.fragment) {
					return pc.component
				}
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// detectCategory prefers a category carried by the error chain and falls
// back to the component's usual category.
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if As(err, &catErr) {
		return catErr.ErrorCategory()
	}
	var enhErr *EnhancedError
	if As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	switch component {
	case "datastore":
		return CategoryDatabase
	case "api":
		return CategoryHTTP
	case "mqtt":
		return CategoryPublish
	case "configuration", "seed":
		return CategoryConfiguration
	default:
		return CategoryGeneric
	}
}

// NewStd is errors.New from the standard library
func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err's chain holds an EnhancedError of category
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

func IsNotFound(err error) bool { return IsCategory(err, CategoryNotFound) }
