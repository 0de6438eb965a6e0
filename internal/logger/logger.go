package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// ParseLevel accepts either the numeric flag form (0-4) or a level name.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "none":
		return LogLevelNone, nil
	case "1", "error":
		return LogLevelError, nil
	case "2", "warn", "warning":
		return LogLevelWarning, nil
	case "3", "info":
		return LogLevelInfo, nil
	case "4", "debug":
		return LogLevelDebug, nil
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}

type Logger struct {
	logger *log.Logger
	level  LogLevel
	tag    string
}

// NewLogger wraps a standard logger. A nil logger discards all output.
func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Logger{
		logger: logger,
		level:  level,
		tag:    "",
	}
}

// Discard returns a logger that drops everything, for tests.
func Discard() *Logger {
	return NewLogger(nil, LogLevelNone)
}

// WithTag creates a new logger with a tag prefix
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		tag:    tag,
	}
}

func (l *Logger) formatMessage(level string, format string) string {
	if l.tag != "" {
		if level != "" {
			return "[" + l.tag + "] " + level + " " + format
		}
		return "[" + l.tag + "] " + format
	}
	if level != "" {
		return level + " " + format
	}
	return format
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logger.Printf(l.formatMessage("DEBUG:", format), v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Printf(l.formatMessage("", format), v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level >= LogLevelWarning {
		l.logger.Printf(l.formatMessage("WARN:", format), v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.logger.Printf(l.formatMessage("ERROR:", format), v...)
	}
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(l.formatMessage("FATAL:", format), v...)
}
