package sampler

import (
	"os"

	"github.com/rs/zerolog"
)

// LogLevel is the sampler's severity enumeration, independent of the
// logging backend.
type LogLevel int32

const (
	// LevelDebug is for detailed diagnostic information.
	LevelDebug LogLevel = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning conditions (timer-create failures,
	// clock-unavailable notices).
	LevelWarn
	// LevelError is for error conditions.
	LevelError
)

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is the sampler's small structured-logging surface. It exists so
// the controller and its diagnostics never depend on zerolog's API
// directly, matching the teacher's own Logger interface shape, with
// zerolog as the sole built-in implementation instead of a hand-rolled
// pretty/JSON writer.
type Logger interface {
	Log(level LogLevel, category, message string, fields map[string]any)
	IsEnabled(level LogLevel) bool
}

// ZerologLogger implements Logger on top of github.com/rs/zerolog. Output
// goes to stderr through zerolog.ConsoleWriter, colored when stderr is a
// terminal and uncolored otherwise, so unlike the teacher's hand-rolled DefaultLogger this doesn't
// carry its own ANSI formatting path.
type ZerologLogger struct {
	logger zerolog.Logger
	level  LogLevel
}

// NewZerologLogger creates a Logger at the given minimum level, writing to
// stderr.
func NewZerologLogger(level LogLevel) *ZerologLogger {
	var writer zerolog.ConsoleWriter
	if isTerminal(os.Stderr) {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	} else {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: "15:04:05.000"}
	}
	return &ZerologLogger{
		logger: zerolog.New(writer).With().Timestamp().Logger().Level(level.zerologLevel()),
		level:  level,
	}
}

// IsEnabled reports whether level would actually be logged.
func (l *ZerologLogger) IsEnabled(level LogLevel) bool {
	return level >= l.level
}

// Log writes a structured log entry.
func (l *ZerologLogger) Log(level LogLevel, category, message string, fields map[string]any) {
	if !l.IsEnabled(level) {
		return
	}
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = l.logger.Debug()
	case LevelWarn:
		ev = l.logger.Warn()
	case LevelError:
		ev = l.logger.Error()
	default:
		ev = l.logger.Info()
	}
	ev = ev.Str("category", category)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(message)
}

// NoOpLogger discards everything; tests that don't want log noise pass
// WithLogger(NoOpLogger{}). WithLogger(nil) selects the zerolog default.
type NoOpLogger struct{}

func (NoOpLogger) Log(LogLevel, string, string, map[string]any) {}
func (NoOpLogger) IsEnabled(LogLevel) bool                      { return false }

// isTerminal reports whether f looks like an interactive terminal. Used
// only to pick a color-capable vs. plain console writer.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
