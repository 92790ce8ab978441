// Package logging provides the agent's structured-ish logging facility. It is
// deliberately small: a level-gated, prefix-hierarchy logger built on top of
// the standard library's log package, in the style used throughout this
// codebase's components.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/fatih/color"
)

// Level represents a logging severity level.
type Level uint8

const (
	// LevelDisabled disables all output.
	LevelDisabled Level = iota
	// LevelError enables only error output.
	LevelError
	// LevelWarn enables warning and error output.
	LevelWarn
	// LevelInfo enables informational, warning, and error output.
	LevelInfo
	// LevelDebug enables all output, including debug output.
	LevelDebug
)

// writer is an io.Writer that splits its input stream into lines and routes
// each complete line to a callback. It mirrors the line-buffering writer
// used to adapt foreign io.Writer-based APIs into this logger.
type writer struct {
	callback func(string)
	buffer   []byte
}

func trimCarriageReturn(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

func (w *writer) Write(data []byte) (int, error) {
	w.buffer = append(w.buffer, data...)

	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	return len(data), nil
}

// Logger is the agent's logger. A nil *Logger is valid and logs nothing,
// which lets components be constructed without a logger in tests. Logger is
// safe for concurrent use.
type Logger struct {
	mu     *sync.Mutex
	output *log.Logger
	level  Level
	prefix string
}

// NewLogger creates a root logger writing to destination at the given level.
func NewLogger(level Level, destination io.Writer) *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		output: log.New(destination, "", log.Ldate|log.Ltime),
		level:  level,
	}
}

// Sublogger creates a new logger with name appended to the prefix hierarchy.
// Calling Sublogger on a nil Logger returns nil.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		prefix: prefix,
	}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

func (l *Logger) line(tag, colored, format string, args []interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		return fmt.Sprintf("%s [%s] %s", colored, l.prefix, msg)
	}
	return fmt.Sprintf("%s %s", colored, msg)
}

func (l *Logger) emit(level Level, tag string, colorize func(string, ...interface{}) string, format string, args ...interface{}) {
	if !l.enabled(level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Print(l.line(tag, colorize(tag), format, args))
}

// Debugf logs a formatted debug-level message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.emit(LevelDebug, "DEBUG", color.CyanString, format, args...)
}

// Infof logs a formatted informational message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.emit(LevelInfo, "INFO", color.GreenString, format, args...)
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.emit(LevelWarn, "WARN", color.YellowString, format, args...)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.emit(LevelError, "ERROR", color.RedString, format, args...)
}

// Debug logs a debug-level message built from fmt.Sprint semantics.
func (l *Logger) Debug(args ...interface{}) { l.Debugf("%s", fmt.Sprint(args...)) }

// Info logs an informational message built from fmt.Sprint semantics.
func (l *Logger) Info(args ...interface{}) { l.Infof("%s", fmt.Sprint(args...)) }

// Warn logs a warning built from an error value.
func (l *Logger) Warn(err error) { l.Warnf("%v", err) }

// Error logs an error built from an error value.
func (l *Logger) Error(err error) { l.Errorf("%v", err) }

// Writer returns an io.Writer that routes complete lines to Infof, for
// adapting APIs (e.g. exec.Cmd.Stdout) that want an io.Writer.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return &writer{callback: func(s string) { l.Infof("%s", s) }}
}
