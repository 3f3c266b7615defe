// Package logger builds the runtime's zap logger: colored console output for
// interactive runs plus an optional size-rotated file for long captures.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger driven by the package-level helpers. Engine
// components receive their own *zap.Logger through builder options instead of
// reaching for this global.
var Log = zap.NewNop()

// settings is the internal configuration state modified by Option functions.
type settings struct {
	level    zapcore.Level
	console  bool
	filePath string

	// lumberjack rotation bounds for the file sink.
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// Option is a function that modifies the logger settings.
type Option func(*settings)

// WithLevel sets the minimum level from its config-file spelling; anything
// unrecognized falls back to info.
//
// Parameters:
//   - level: one of "debug", "info", "warn", "error"
func WithLevel(level string) Option {
	return func(s *settings) {
		s.level = parseLevel(level)
	}
}

// WithRotatingFile adds a size-rotated file sink at path. An empty path is
// ignored so config values can be passed through unconditionally.
func WithRotatingFile(path string) Option {
	return func(s *settings) {
		s.filePath = path
	}
}

// WithRotation overrides the rotation bounds of the file sink.
//
// Parameters:
//   - maxSizeMB: size in megabytes at which the file rolls over
//   - maxBackups: rolled files kept before the oldest is deleted
//   - maxAgeDays: days a rolled file is kept
func WithRotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(s *settings) {
		s.maxSizeMB = maxSizeMB
		s.maxBackups = maxBackups
		s.maxAgeDays = maxAgeDays
	}
}

// WithoutConsole disables the console sink, leaving only the file sink.
// Useful for tests and headless captures.
func WithoutConsole() Option {
	return func(s *settings) {
		s.console = false
	}
}

// New builds a logger from the given options. Defaults: info level, colored
// console output with millisecond timestamps, no file sink. The file sink
// rolls at 20 MB, keeps 5 backups for 14 days, and compresses rolled files.
func New(opts ...Option) *zap.Logger {
	s := &settings{
		level:      zapcore.InfoLevel,
		console:    true,
		maxSizeMB:  20,
		maxBackups: 5,
		maxAgeDays: 14,
		compress:   true,
	}
	for _, opt := range opts {
		opt(s)
	}

	var cores []zapcore.Core
	if s.console {
		cores = append(cores, consoleCore(s.level))
	}
	if s.filePath != "" {
		cores = append(cores, fileCore(s))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// Init builds the process-wide logger used by the package-level helpers.
//
// Parameters:
//   - level: minimum level, config-file spelling
//   - logFile: rotated file path, empty for console only
func Init(level, logFile string) {
	Log = New(WithLevel(level), WithRotatingFile(logFile))
}

// consoleCore renders human-oriented lines. Frame-rate work wants sub-second
// timestamps, so the time layout carries milliseconds.
func consoleCore(lvl zapcore.Level) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	})
	return zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), lvl)
}

// fileCore renders JSON lines into a lumberjack-rotated file so captures of
// long sessions stay bounded and machine-readable.
func fileCore(s *settings) zapcore.Core {
	writer := &lumberjack.Logger{
		Filename:   s.filePath,
		MaxSize:    s.maxSizeMB,
		MaxBackups: s.maxBackups,
		MaxAge:     s.maxAgeDays,
		Compress:   s.compress,
		LocalTime:  true,
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	return zapcore.NewCore(enc, zapcore.AddSync(writer), s.level)
}

// parseLevel converts a config-file level string to zapcore.Level.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

// Debug logs a debug message on the process-wide logger.
func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// Info logs an info message on the process-wide logger.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs a warning on the process-wide logger.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// Error logs an error on the process-wide logger.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

// Fatal logs a fatal message on the process-wide logger and exits.
func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}
