// Package observability provides structured logging shared across the
// registry, storage, gateway and merger packages.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	return []string{"DEBUG", "INFO", "WARN", "ERROR"}[l]
}

// Logger provides structured JSON logging with field scoping.
type Logger struct {
	level  LogLevel
	output io.Writer
	fields map[string]interface{}
}

// NewLogger creates a new structured logger writing to output (stdout if
// nil).
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{level: level, output: output, fields: make(map[string]interface{})}
}

// LogEntry is a single structured log record.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) clone() *Logger {
	newLogger := &Logger{level: l.level, output: l.output, fields: make(map[string]interface{}, len(l.fields)+1)}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// WithField returns a derived logger carrying an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	newLogger := l.clone()
	newLogger.fields[key] = value
	return newLogger
}

// WithFields returns a derived logger carrying additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newLogger := l.clone()
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// WithError returns a derived logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.log(DebugLevel, message) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...))
}
func (l *Logger) Info(message string) { l.log(InfoLevel, message) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...))
}
func (l *Logger) Warn(message string) { l.log(WarnLevel, message) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...))
}
func (l *Logger) Error(message string) { l.log(ErrorLevel, message) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) log(level LogLevel, message string) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   message,
		Fields:    l.fields,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, "[%s] %s: %s\n", entry.Timestamp.Format(time.RFC3339), level.String(), message)
		return
	}
	l.output.Write(data)
	l.output.Write([]byte("\n"))
}

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger attaches a logger to a context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger attached to ctx, or a default info-level
// logger if none was attached.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return NewLogger(InfoLevel, os.Stdout)
}

// RootLogrus returns a new logrus logger with a JSON formatter. Each call
// builds a separate logger; it is not shared process-wide, and the
// structured Logger above does not write through it.
func RootLogrus() *logrus.Logger {
	root := logrus.New()
	root.SetFormatter(&logrus.JSONFormatter{})
	return root
}
