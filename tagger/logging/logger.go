// Package logging writes structured JSON log lines for the mtag service.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel represents the log level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Service   string                 `json:"service"`
	Operation string                 `json:"operation,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is a structured JSON logger. It is safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	file     *os.File
	service  string
	minLevel LogLevel
}

// NewLogger opens logPath in append mode. When mirror is non-nil every line
// is also written to it.
func NewLogger(logPath, service string, mirror io.Writer) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if mirror != nil {
		out = io.MultiWriter(file, mirror)
	}
	return &Logger{out: out, file: file, service: service, minLevel: LogLevelInfo}, nil
}

// NewWriterLogger logs to w only.
func NewWriterLogger(w io.Writer, service string) *Logger {
	return &Logger{out: w, service: service, minLevel: LogLevelInfo}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard, "")
}

// SetLevel drops entries below level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := levelRank[level]; ok {
		l.minLevel = level
	}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = io.Discard
	return err
}

// Log writes one entry. fields may be nil.
func (l *Logger) Log(level LogLevel, operation, message string, err error, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Service:   l.service,
		Operation: operation,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// fields held something json cannot encode
		entry.Fields = nil
		entry.Error = fmt.Sprintf("%s (fields dropped: %v)", entry.Error, marshalErr)
		data, _ = json.Marshal(entry)
	}
	_, _ = fmt.Fprintln(l.out, string(data))
}

// Debug logs a debug message.
func (l *Logger) Debug(operation, message string) {
	l.Log(LogLevelDebug, operation, message, nil, nil)
}

// Info logs an info message.
func (l *Logger) Info(operation, message string) {
	l.Log(LogLevelInfo, operation, message, nil, nil)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(operation, format string, args ...interface{}) {
	l.Info(operation, fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(operation, message string, err error) {
	l.Log(LogLevelWarn, operation, message, err, nil)
}

// Error logs an error message.
func (l *Logger) Error(operation, message string, err error) {
	l.Log(LogLevelError, operation, message, err, nil)
}
