// Package logging provides the levelled logger used across kvring.
// Output goes through the standard log package with a "[prefix]" tag per line.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a config string to a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the logging surface components depend on.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger writes levelled lines through a *log.Logger.
type StdLogger struct {
	prefix string
	min    atomic.Int32
	out    *log.Logger
}

// New creates a StdLogger writing to stderr.
func New(prefix string, min Level) *StdLogger {
	return NewWithWriter(os.Stderr, prefix, min)
}

// NewWithWriter creates a StdLogger writing to w.
func NewWithWriter(w io.Writer, prefix string, min Level) *StdLogger {
	l := &StdLogger{
		prefix: prefix,
		out:    log.New(w, "", log.LstdFlags|log.Lmicroseconds),
	}
	l.min.Store(int32(min))
	return l
}

// SetLevel changes the minimum level at runtime.
func (l *StdLogger) SetLevel(level Level) {
	l.min.Store(int32(level))
}

func (l *StdLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *StdLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *StdLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *StdLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *StdLogger) logf(level Level, format string, args ...any) {
	if int32(level) < l.min.Load() {
		return
	}
	if l.prefix != "" {
		l.out.Printf("[%s] %s "+format, append([]any{l.prefix, level}, args...)...)
		return
	}
	l.out.Printf("%s "+format, append([]any{level}, args...)...)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}
