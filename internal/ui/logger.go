package ui

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger wraps charmbracelet/log for styled sitepulse output.
type Logger struct {
	logger *log.Logger
}

// New creates a new styled Logger.
func New() *Logger {
	l := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	return &Logger{logger: l}
}

// Info logs an informational message with optional key-value pairs.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, err error, keyvals ...interface{}) {
	kv := append([]interface{}{"err", err}, keyvals...)
	l.logger.Error(msg, kv...)
}

// CycleFailure logs one detection cycle failure with enough context to
// diagnose without restarting the process.
func (l *Logger) CycleFailure(resource, url, kind string, err error) {
	l.logger.Error("Detection cycle failed", "resource", resource, "url", url, "kind", kind, "err", err)
}

// ChangeDetected logs a significant change on a resource.
func (l *Logger) ChangeDetected(url string, segments int) {
	l.logger.Info("Change detected", "url", url, "changed_segments", segments)
}
