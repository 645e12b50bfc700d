package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	// LoadLocation must work on hosts without zoneinfo
	_ "time/tzdata"

	"github.com/fleetops/geocheckin/internal/errors"
)

const (
	// slog has no trace level; Debug is -4
	traceLevelValue = slog.Level(-8)

	// Generic floats keep 3 decimals, coordinates keep 6 (about 0.1 m)
	floatDecimals      = 3
	coordinateDecimals = 6

	logFilePermissions = 0o600
	logDirPermissions  = 0o700
)

type loggerContextKey struct{ name string }

// TraceIDKey is the context key read by WithContext
var TraceIDKey = loggerContextKey{"trace_id"}

// WithTraceID returns a context whose loggers tag entries with traceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// CentralLogger owns the output handlers and hands out module loggers.
// Per-module levels come from LoggingConfig.ModuleLevels.
type CentralLogger struct {
	handler      slog.Handler
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level

	mu   sync.Mutex
	file *os.File
}

// NewCentralLogger builds the console and file outputs described by cfg.
// Missing sections are filled with defaults.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := resolveTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		defaultLevel: parseLogLevel(cfg.DefaultLevel),
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	outputs := make([]slog.Handler, 0, 2)
	if cfg.Console.Enabled {
		outputs = append(outputs, newTextHandler(os.Stdout, parseLogLevel(cfg.Console.Level), tz))
	}
	if cfg.FileOutput.Enabled {
		f, err := openLogFile(cfg.FileOutput.Path)
		if err != nil {
			return nil, err
		}
		cl.file = f
		outputs = append(outputs, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.FileOutput.Level),
		}))
	}

	switch len(outputs) {
	case 0:
		cl.handler = newTextHandler(os.Stdout, cl.defaultLevel, tz)
	case 1:
		cl.handler = outputs[0]
	default:
		cl.handler = newFanoutHandler(outputs...)
	}
	return cl, nil
}

func resolveTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != path {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Module returns the logger for a component, e.g. "checkin" or "datastore"
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	level, ok := cl.moduleLevels[name]
	if !ok {
		level = cl.defaultLevel
	}
	return &scopedLogger{module: name, out: slog.New(cl.handler), level: level}
}

// Flush syncs the log file, if any
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Sync()
}

// Close syncs and closes the log file. Later entries for the file are dropped.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	syncErr := cl.file.Sync()
	closeErr := cl.file.Close()
	cl.file = nil
	return errors.Join(syncErr, closeErr)
}

func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelTrace:
		return traceLevelValue
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// scopedLogger is the Logger handed to components
type scopedLogger struct {
	module string
	out    *slog.Logger
	level  slog.Level
	fields []Field
}

func (s *scopedLogger) derive(module string, fields []Field) *scopedLogger {
	return &scopedLogger{module: module, out: s.out, level: s.level, fields: fields}
}

// Module nests name under the current module as "parent.name"
func (s *scopedLogger) Module(name string) Logger {
	if s == nil {
		return nil
	}
	if s.module != "" {
		name = s.module + "." + name
	}
	return s.derive(name, slices.Clone(s.fields))
}

func (s *scopedLogger) With(fields ...Field) Logger {
	if s == nil {
		return nil
	}
	return s.derive(s.module, slices.Concat(s.fields, fields))
}

func (s *scopedLogger) WithContext(ctx context.Context) Logger {
	if s == nil {
		return nil
	}
	if ctx != nil {
		if id, ok := ctx.Value(TraceIDKey).(string); ok && id != "" {
			return s.With(String(traceIDKey, id))
		}
	}
	return s
}

func (s *scopedLogger) Trace(msg string, fields ...Field) { s.emit(traceLevelValue, msg, fields) }
func (s *scopedLogger) Debug(msg string, fields ...Field) { s.emit(slog.LevelDebug, msg, fields) }
func (s *scopedLogger) Info(msg string, fields ...Field)  { s.emit(slog.LevelInfo, msg, fields) }
func (s *scopedLogger) Warn(msg string, fields ...Field)  { s.emit(slog.LevelWarn, msg, fields) }
func (s *scopedLogger) Error(msg string, fields ...Field) { s.emit(slog.LevelError, msg, fields) }

func (s *scopedLogger) Log(level LogLevel, msg string, fields ...Field) {
	s.emit(parseLogLevel(string(level)), msg, fields)
}

// Flush is a no-op; the CentralLogger owns the file
func (s *scopedLogger) Flush() error { return nil }

func (s *scopedLogger) emit(level slog.Level, msg string, fields []Field) {
	if s == nil || level < s.level {
		return
	}
	attrs := make([]slog.Attr, 0, 1+len(s.fields)+len(fields))
	if s.module != "" {
		attrs = append(attrs, slog.String(moduleKey, s.module))
	}
	for _, f := range s.fields {
		attrs = append(attrs, f.attr())
	}
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	s.out.LogAttrs(context.Background(), level, msg, attrs...)
}

func round(val float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(val*p) / p
}

func (f Field) attr() slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, round(v, floatDecimals))
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	case coordinates:
		return slog.Group(f.Key,
			slog.Float64("lat", round(v.lat, coordinateDecimals)),
			slog.Float64("lon", round(v.lon, coordinateDecimals)))
	default:
		return slog.Any(f.Key, v)
	}
}
