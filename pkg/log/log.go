package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Packages derive component loggers
// from it when they are constructed, so Init must run first.
var Logger = newLogger(os.Stderr, true)

// Level names accepted in configuration
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config selects level and format. A nil Output means stderr, which keeps
// stdout free for command output.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init replaces Logger and the global level
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	Logger = newLogger(out, cfg.JSONOutput)
}

func newLogger(out io.Writer, json bool) zerolog.Logger {
	if !json {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel maps a configured level onto zerolog; unknown names mean info
func ParseLevel(l Level) zerolog.Level {
	if lvl, ok := levels[l]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// WithComponent tags records with the emitting package
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStream tags records with a bus stream name
func WithStream(name string) zerolog.Logger {
	return Logger.With().Str("stream", name).Logger()
}

// WithTypeID tags records with a payload type URL
func WithTypeID(typeID string) zerolog.Logger {
	return Logger.With().Str("type_id", typeID).Logger()
}
