package app

import (
	"io"

	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/logger"
)

// NewServiceLogger builds the module-routed logger used by long running
// commands. The debug flag lowers the default and console levels to debug.
func NewServiceLogger(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		console := logger.ConsoleOutput{Enabled: true, Level: "debug"}
		if cfg.Console != nil {
			console.Enabled = cfg.Console.Enabled
		}
		cfg.Console = &console
	}
	return logger.NewCentralLogger(&cfg)
}

// NewCommandLogger returns a JSON logger for one-shot commands. Output goes to
// w, normally stderr, so it never mixes with the command's own stdout.
func NewCommandLogger(settings *conf.Settings, w io.Writer) logger.Logger {
	level := logger.LogLevelWarn
	if settings.Debug {
		level = logger.LogLevelDebug
	}
	return logger.NewSlogLogger(w, level, nil)
}
