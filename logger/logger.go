// Package logger wraps structured logging behind a small interface so the
// core packages stay decoupled from the logging backend.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger takes in a message and key/value tag pairs.
type Logger interface {
	Debug(msg string, tags ...interface{})
	Info(msg string, tags ...interface{})
	Warn(msg string, tags ...interface{})
	Error(msg string, tags ...interface{})
}

type logger struct {
	zl zerolog.Logger
}

// New creates a logger that writes JSON lines to stdout at info level.
func New() Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a stdout logger at the given zerolog level name.
// Unknown names fall back to info.
func NewWithLevel(level string) Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	return &logger{zl: zl}
}

// NewWriter creates a logger writing to w, for tests.
func NewWriter(w io.Writer) Logger {
	return &logger{zl: zerolog.New(w)}
}

// NewNop creates a logger that discards everything.
func NewNop() Logger {
	return &logger{zl: zerolog.Nop()}
}

func (l *logger) emit(ev *zerolog.Event, msg string, tags []interface{}) {
	for i := 0; i+1 < len(tags); i += 2 {
		key, ok := tags[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, tags[i+1])
	}
	ev.Msg(msg)
}

// Debug creates a debug log entry.
func (l *logger) Debug(msg string, tags ...interface{}) { l.emit(l.zl.Debug(), msg, tags) }

// Info creates an info log entry.
func (l *logger) Info(msg string, tags ...interface{}) { l.emit(l.zl.Info(), msg, tags) }

// Warn creates a warn log entry.
func (l *logger) Warn(msg string, tags ...interface{}) { l.emit(l.zl.Warn(), msg, tags) }

// Error creates an error log entry.
func (l *logger) Error(msg string, tags ...interface{}) { l.emit(l.zl.Error(), msg, tags) }
