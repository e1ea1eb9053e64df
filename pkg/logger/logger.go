package logx

import (
	"os"

	"github.com/fdsanalytics/analytics-agent/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerOpts controls how the global logger is initialised.
type LoggerOpts struct {
	Environment core.Environment
	Service     string
}

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
	Service:     "analytics-agent",
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	o := opts[0]
	if o.Service == "" {
		o.Service = DefaultLoggerOpts.Service
	}
	return &o
}

// Init configures the process-wide zerolog logger. Production gets structured
// JSON at Info level; everything else gets a console writer at Debug level.
func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	if o.Environment.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", o.Service).Logger().Level(zerolog.InfoLevel)
	} else {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Caller().Logger().Level(zerolog.DebugLevel)
	}
}

// With derives a child logger builder from the global logger.
func With() zerolog.Context {
	return log.With()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
