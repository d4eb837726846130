// Package logging provides structured logging infrastructure for the wikisync application.
// It wraps Go's standard log/slog package with context-aware logging, run correlation,
// optional rotating log files, and sync-specific log helpers.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// RunIDKey is the context key for sync run IDs.
	RunIDKey contextKey = "run_id"
	// TeamKey is the context key for the remote team name.
	TeamKey contextKey = "team"
	// FileKey is the context key for the local file being synced.
	FileKey contextKey = "file"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileConfig enables a rotating log file in addition to Output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	File       FileConfig
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with run-scoped context enrichment.
type Logger struct {
	slogger *slog.Logger
	level   *slog.LevelVar
	closer  io.Closer
}

var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := &slog.LevelVar{}
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var closer io.Closer
	if cfg.File.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
		}
		output = io.MultiWriter(output, rotating)
		closer = rotating
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
		closer:  closer,
	}
}

func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(parseLevel(level))
}

// Close releases the rotating log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
		closer:  l.closer,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+6)

	if v := ctx.Value(RunIDKey); v != nil {
		enriched = append(enriched, "run_id", v)
	}
	if v := ctx.Value(TeamKey); v != nil {
		enriched = append(enriched, "team", v)
	}
	if v := ctx.Value(FileKey); v != nil {
		enriched = append(enriched, "file", v)
	}

	return append(enriched, args...)
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

// WithTeam adds the team name to the context.
func WithTeam(ctx context.Context, team string) context.Context {
	return context.WithValue(ctx, TeamKey, team)
}

// WithFile adds the current file path to the context.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, FileKey, path)
}

// RunID extracts the run ID from context.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// --- Sync logging helpers ---

// LogRunStart logs the start of a sync run.
func LogRunStart(ctx context.Context, logger *Logger, source, destination string, files int, dryRun bool) {
	logger.InfoContext(ctx, "sync run started",
		"source", source,
		"destination", destination,
		"files", files,
		"dry_run", dryRun,
	)
}

// LogRunComplete logs the completion of a sync run.
func LogRunComplete(ctx context.Context, logger *Logger, created, updated, skipped int, duration time.Duration) {
	logger.InfoContext(ctx, "sync run completed",
		"created", created,
		"updated", updated,
		"skipped", skipped,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogRunFailed logs a failed sync run.
func LogRunFailed(ctx context.Context, logger *Logger, err error, duration time.Duration) {
	logger.ErrorContext(ctx, "sync run failed",
		"error", err.Error(),
		"duration_ms", duration.Milliseconds(),
	)
}

// LogFileSynced logs a created or updated document.
func LogFileSynced(ctx context.Context, logger *Logger, action, fullName string, number int) {
	logger.InfoContext(ctx, action+" post",
		"full_name", fullName,
		"number", number,
	)
}

// LogFileSkipped logs a file skipped because its document already exists.
func LogFileSkipped(ctx context.Context, logger *Logger, fullName string) {
	logger.DebugContext(ctx, "post already exists, skipping",
		"full_name", fullName,
	)
}

// LogWait logs a pacing or cooldown suspension.
func LogWait(ctx context.Context, logger *Logger, kind string, wait time.Duration, remaining, limit int) {
	logger.DebugContext(ctx, kind,
		"wait_seconds", wait.Seconds(),
		"remaining", remaining,
		"limit", limit,
	)
}

// LogRequest logs an outgoing wiki API request.
func LogRequest(ctx context.Context, logger *Logger, method, path string) {
	logger.DebugContext(ctx, "wiki request",
		"method", method,
		"path", path,
	)
}
