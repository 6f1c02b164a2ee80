// Package logging provides the structured logger used by the kernel.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jmgilman/go/filetable/errors"
)

// LogLevel represents different logging levels
type LogLevel int

// Logging levels, lowest first.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the lower-case level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelInfo:
		return "info"
	case LogLevelWarn:
		return "warn"
	case LogLevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger provides structured logging for the kernel. The zero value and a
// nil *Logger discard everything.
type Logger struct {
	logger *slog.Logger
	fields []any
}

// LogConfig holds configuration for the kernel logger.
type LogConfig struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level LogLevel
	// EnableCallerInfo includes file and line number in logs
	EnableCallerInfo bool
	// JSON selects the JSON handler instead of the text handler
	JSON bool
	// Output is where records are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultLogConfig returns a default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  LogLevelInfo,
		Output: os.Stderr,
	}
}

// NewLogger creates a new structured logger with the given configuration.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     config.Level.slog(),
		AddSource: config.EnableCallerInfo,
	}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// NewNopLogger creates a no-op logger that discards all log messages.
func NewNopLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	all := make([]any, 0, len(l.fields)+len(args))
	all = append(all, l.fields...)
	all = append(all, args...)
	l.logger.Log(ctx, level, msg, all...)
}

// Debug logs debug-level messages
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args)
}

// Info logs info-level messages
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args)
}

// Warn logs warning-level messages
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args)
}

// Error logs error-level messages
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args)
}

// With returns a logger with additional context fields
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.logger == nil {
		return l
	}
	fields := make([]any, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &Logger{logger: l.logger, fields: fields}
}

// WithOperation returns a logger with operation context
func (l *Logger) WithOperation(op Operation) *Logger {
	return l.With("operation", string(op))
}

// WithProcess returns a logger with process context
func (l *Logger) WithProcess(pid int, name string) *Logger {
	return l.With("pid", pid, "process", name)
}

// WithDescriptor returns a logger with descriptor context
func (l *Logger) WithDescriptor(fd int) *Logger {
	return l.With("fd", fd)
}

// Operation names a kernel operation for logging and statistics.
type Operation string

// Operation constants for kernel operations
const (
	OpOpen     Operation = "open"
	OpClose    Operation = "close"
	OpRead     Operation = "read"
	OpWrite    Operation = "write"
	OpLseek    Operation = "lseek"
	OpDup2     Operation = "dup2"
	OpFork     Operation = "fork"
	OpExit     Operation = "exit"
	OpShutdown Operation = "shutdown"
)

// LogSyscall logs the outcome of a syscall. Successes go to debug,
// exhaustion to warn, and every other failure to info.
func LogSyscall(ctx context.Context, logger *Logger, op Operation, duration time.Duration, result int64, err error) {
	if logger == nil {
		return
	}

	fields := []any{
		"operation", string(op),
		"duration_us", duration.Microseconds(),
	}

	if err == nil {
		fields = append(fields, "result", result)
		logger.Debug(ctx, "syscall completed", fields...)
		return
	}

	fields = append(fields,
		"code", string(errors.GetCode(err)),
		"errno", errors.ErrnoOf(err).String(),
		"error", err.Error())
	if errors.IsRetryable(err) {
		logger.Warn(ctx, "syscall hit resource limit", fields...)
		return
	}
	logger.Info(ctx, "syscall failed", fields...)
}

// LogReclaimFailure logs a vnode that failed to close after its last
// reference was dropped.
func LogReclaimFailure(ctx context.Context, logger *Logger, slot int, err error) {
	if logger == nil || err == nil {
		return
	}

	logger.Error(ctx, "vnode close failed",
		"slot", slot,
		"error", err.Error())
}

// ParseLogLevel parses a string log level into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}
