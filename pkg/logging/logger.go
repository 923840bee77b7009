package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so packages can share Named children of one process logger.
type Logger struct {
	*zap.Logger
}

// Config selects level, encoding and destinations.
type Config struct {
	// Level is debug, info, warn or error.
	Level string
	// Format is json or console.
	Format string

	OutputPaths      []string
	ErrorOutputPaths []string

	// Development switches to zap's development encoder and makes DPanic panic.
	Development      bool
	EnableCaller     bool
	EnableStacktrace bool
}

// DefaultConfig logs info and above as JSON to stderr, keeping stdout free for
// command output.
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
}

// DevelopmentConfig logs everything in a human-readable form with callers.
func DevelopmentConfig() Config {
	return Config{
		Level:            "debug",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      true,
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// NewLogger builds a logger. It fails on an unknown level or format.
func NewLogger(config Config) (*Logger, error) {
	level, err := parseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	if config.Format != "json" && config.Format != "console" {
		return nil, fmt.Errorf("logging: unknown format %q", config.Format)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       config.Development,
		DisableCaller:     !config.EnableCaller,
		DisableStacktrace: !config.EnableStacktrace,
		Encoding:          config.Format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       config.OutputPaths,
		ErrorOutputPaths:  config.ErrorOutputPaths,
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	return &Logger{logger}, nil
}

// NewLoggerFromEnv creates a logger from DefaultConfig and the LEDGER_LOG_* variables.
func NewLoggerFromEnv() (*Logger, error) {
	return NewLogger(ConfigFromEnv(DefaultConfig()))
}

// ConfigFromEnv overlays LEDGER_LOG_DEV, LEDGER_LOG_LEVEL and LEDGER_LOG_FORMAT onto
// base. LEDGER_LOG_DEV=true starts over from DevelopmentConfig.
func ConfigFromEnv(base Config) Config {
	dev := os.Getenv("LEDGER_LOG_DEV") == "true"
	return Settings(base, os.Getenv("LEDGER_LOG_LEVEL"), os.Getenv("LEDGER_LOG_FORMAT"), dev)
}

// Settings applies the user-facing log settings to base. Empty strings keep base's value.
func Settings(base Config, level, format string, dev bool) Config {
	config := base
	if dev {
		config = DevelopmentConfig()
	}
	if level != "" {
		config.Level = level
	}
	if format != "" {
		config.Format = format
	}
	return config
}

// NewNoOpLogger creates a logger that discards all logs
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// parseLevel accepts the zap level names below panic; a ledger never panics on purpose.
func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named creates a child logger with a name
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

var global atomic.Pointer[Logger]

func init() {
	global.Store(NewNoOpLogger())
}

// SetGlobal replaces the logger returned by Global. Loggers already derived from the
// previous one keep writing to it.
func SetGlobal(logger *Logger) {
	if logger != nil {
		global.Store(logger)
	}
}

// Global returns the process-wide logger. It discards everything until SetGlobal is called.
func Global() *Logger {
	return global.Load()
}
