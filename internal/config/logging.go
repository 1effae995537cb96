package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	// ErrLevel=1 - only errors.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - warnings and errors, the default.
	WarnLevel

	// InfoLevel=3 - high-level progress: files discovered, index sizes, findings per detector.
	InfoLevel

	// DebugLevel=4 - per-file decisions such as skipped files and cache hits.
	DebugLevel

	// TraceLevel=5 - per-function engine events. Only useful on small programs.
	TraceLevel
)

// ParseLogLevel accepts a level name or its number.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "error", "err":
		return ErrLevel, nil
	case "2", "warn", "warning":
		return WarnLevel, nil
	case "3", "info":
		return InfoLevel, nil
	case "4", "debug":
		return DebugLevel, nil
	case "5", "trace":
		return TraceLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup returns a log group writing to stderr at the level stored in config.
func NewLogGroup(config *Config) *LogGroup {
	return NewLogGroupAt(LogLevel(config.LogLevel), os.Stderr)
}

// NewLogGroupAt returns a log group at level writing to w.
func NewLogGroupAt(level LogLevel, w io.Writer) *LogGroup {
	return &LogGroup{
		level: level,
		trace: log.New(w, "[TRACE] ", log.LstdFlags),
		debug: log.New(w, "[DEBUG] ", log.LstdFlags),
		info:  log.New(w, "[INFO] ", log.LstdFlags),
		warn:  log.New(w, "[WARN] ", log.LstdFlags),
		err:   log.New(w, "[ERROR] ", log.LstdFlags),
	}
}

// Discard returns a log group that prints nothing.
func Discard() *LogGroup {
	return NewLogGroupAt(0, io.Discard)
}

// Level returns the configured level.
func (l *LogGroup) Level() LogLevel { return l.level }

// SetLevel changes the level of the group.
func (l *LogGroup) SetLevel(level LogLevel) { l.level = level }

// SetAllOutput sets all the output writers to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.trace.SetOutput(w)
	l.debug.SetOutput(w)
	l.info.SetOutput(w)
	l.warn.SetOutput(w)
	l.err.SetOutput(w)
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided
func (l *LogGroup) SetAllFlags(x int) {
	l.trace.SetFlags(x)
	l.debug.SetFlags(x)
	l.info.SetFlags(x)
	l.warn.SetFlags(x)
	l.err.SetFlags(x)
}

// Tracef prints to the trace logger. A nil group discards.
func (l *LogGroup) Tracef(format string, v ...any) {
	if l != nil && l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

func (l *LogGroup) Debugf(format string, v ...any) {
	if l != nil && l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

func (l *LogGroup) Infof(format string, v ...any) {
	if l != nil && l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

func (l *LogGroup) Warnf(format string, v ...any) {
	if l != nil && l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

func (l *LogGroup) Errorf(format string, v ...any) {
	if l != nil && l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}

// LogsDebug reports whether debug messages are printed.
func (l *LogGroup) LogsDebug() bool { return l != nil && l.level >= DebugLevel }

// LogsTrace reports whether trace messages are printed.
func (l *LogGroup) LogsTrace() bool { return l != nil && l.level >= TraceLevel }
