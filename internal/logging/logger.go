// Package logging provides the operator-facing logger used across logbot.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logger verbosity threshold.
type Level = zerolog.Level

const (
	LevelTrace   = zerolog.TraceLevel
	LevelDebug   = zerolog.DebugLevel
	LevelInfo    = zerolog.InfoLevel
	LevelWarning = zerolog.WarnLevel
	LevelError   = zerolog.ErrorLevel
)

// ILogger is the logging contract shared by every component.
type ILogger interface {
	Trace(msg string)
	Tracef(format string, args ...any)
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Warning(msg string)
	Warningf(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)

	// SubLogger returns a child logger tagged with the given component name.
	SubLogger(component string) ILogger

	// SetLevel changes the threshold of this logger and of every logger sharing its root.
	SetLevel(level Level)
}

// Logger is the zerolog backed ILogger. Sub loggers share the level of their root so a
// config reload reaches components that were built earlier.
type Logger struct {
	zl    zerolog.Logger
	level *atomic.Int32
}

var _ ILogger = (*Logger)(nil)

// NewConsoleLogger creates a human readable logger writing to w.
func NewConsoleLogger(w io.Writer) *Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return newLogger(zerolog.New(cw).With().Timestamp().Logger())
}

// NewJSONLogger creates a logger that writes one JSON object per line to w.
func NewJSONLogger(w io.Writer) *Logger {
	return newLogger(zerolog.New(w).With().Timestamp().Logger())
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(zerolog.Nop())
}

func newLogger(zl zerolog.Logger) *Logger {
	l := &Logger{zl: zl, level: new(atomic.Int32)}
	l.level.Store(int32(LevelInfo))
	return l
}

// ParseLevel maps a textual level to a Level, defaulting to info.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Setup creates the process logger on stderr at the given level.
func Setup(level string) *Logger {
	log := NewConsoleLogger(os.Stderr)
	log.SetLevel(ParseLevel(level))
	return log
}

func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// GetLevel returns the current threshold.
func (l *Logger) GetLevel() Level {
	return Level(l.level.Load())
}

func (l *Logger) SubLogger(component string) ILogger {
	return &Logger{
		zl:    l.zl.With().Str("component", component).Logger(),
		level: l.level,
	}
}

// event returns nil when level is below the threshold; zerolog treats a nil event as disabled.
func (l *Logger) event(level Level) *zerolog.Event {
	if level < l.GetLevel() {
		return nil
	}
	return l.zl.WithLevel(level)
}

func (l *Logger) Trace(msg string) { l.event(LevelTrace).Msg(msg) }

func (l *Logger) Tracef(format string, args ...any) { l.event(LevelTrace).Msgf(format, args...) }

func (l *Logger) Debug(msg string) { l.event(LevelDebug).Msg(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.event(LevelDebug).Msgf(format, args...) }

func (l *Logger) Info(msg string) { l.event(LevelInfo).Msg(msg) }

func (l *Logger) Infof(format string, args ...any) { l.event(LevelInfo).Msgf(format, args...) }

func (l *Logger) Warning(msg string) { l.event(LevelWarning).Msg(msg) }

func (l *Logger) Warningf(format string, args ...any) { l.event(LevelWarning).Msgf(format, args...) }

func (l *Logger) Error(msg string) { l.event(LevelError).Msg(msg) }

func (l *Logger) Errorf(format string, args ...any) { l.event(LevelError).Msgf(format, args...) }

// String describes the logger level, mostly for debugging output.
func (l *Logger) String() string {
	return fmt.Sprintf("logger(level=%s)", l.GetLevel())
}
