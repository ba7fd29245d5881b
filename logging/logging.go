// Package logging provides real-time structured log output for the
// task core. The store is the durable record; this package only
// formats and routes the events the core emits.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Task lifecycle logging methods ---
// Called by the store wrappers and the dispatcher as lifecycle events
// occur; one method per event keeps the call sites short.

// TaskCreated logs a task creation.
func (l *Logger) TaskCreated(id, title, priority string) {
	l.Info("task_created", map[string]interface{}{
		"task":     id,
		"title":    title,
		"priority": priority,
	})
}

// TaskClaimed logs a claim by the dispatcher.
func (l *Logger) TaskClaimed(id string) {
	l.Debug("task_claimed", map[string]interface{}{
		"task": id,
	})
}

// TaskCompleted logs a successful completion.
func (l *Logger) TaskCompleted(id string, duration time.Duration) {
	l.Info("task_completed", map[string]interface{}{
		"task":     id,
		"duration": duration.String(),
	})
}

// TaskFailed logs a failed task.
func (l *Logger) TaskFailed(id, reason string, duration time.Duration) {
	l.Error("task_failed", map[string]interface{}{
		"task":     id,
		"error":    reason,
		"duration": duration.String(),
	})
}

// TaskCancelled logs a user-driven cancellation.
func (l *Logger) TaskCancelled(id string) {
	l.Info("task_cancelled", map[string]interface{}{
		"task": id,
	})
}

// TaskDeleted logs a deletion.
func (l *Logger) TaskDeleted(id string) {
	l.Info("task_deleted", map[string]interface{}{
		"task": id,
	})
}

// DispatcherStarted logs dispatcher startup.
func (l *Logger) DispatcherStarted(concurrency int, pollInterval time.Duration) {
	l.Info("dispatcher_started", map[string]interface{}{
		"concurrency":   concurrency,
		"poll_interval": pollInterval.String(),
	})
}

// DispatcherStopped logs dispatcher shutdown.
func (l *Logger) DispatcherStopped(processed, failed uint64) {
	l.Info("dispatcher_stopped", map[string]interface{}{
		"processed": processed,
		"failed":    failed,
	})
}

// StuckTask logs a task left in_progress after a persistence failure.
// Operators reconcile these by hand.
func (l *Logger) StuckTask(id string, err error) {
	l.Error("task_stuck_in_progress", map[string]interface{}{
		"task":  id,
		"error": err.Error(),
	})
}
