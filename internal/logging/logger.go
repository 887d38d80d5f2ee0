package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "ORION_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks ORION_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built

	return nil
}

// InitializeFromEnv initializes the logger from the ORION_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger. Tests use it with zaptest or
// observer cores.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogGesture logs a gesture accepted by the navigation loop.
func LogGesture(code string, menu string) {
	Debug("Gesture accepted",
		zap.String("gesture", code),
		zap.String("menu", menu),
	)
}

// LogTransition logs a menu change.
func LogTransition(from, to string) {
	Info("Menu transition",
		zap.String("from", from),
		zap.String("to", to),
	)
}

// LogStandby logs entering or leaving standby.
func LogStandby(entered bool, idle time.Duration) {
	if entered {
		Info("Entering standby", zap.Duration("idle", idle))
		return
	}
	Info("Waking from standby")
}

// LogTelemetry logs an inbound pub/sub message.
func LogTelemetry(topic string, size int, err error) {
	if err != nil {
		Warn("Dropped telemetry message",
			zap.String("topic", topic),
			zap.Int("length", size),
			zap.Error(err),
		)
		return
	}
	Debug("Telemetry message",
		zap.String("topic", topic),
		zap.Int("length", size),
	)
}

// LogCommand logs an external command invocation and its outcome.
func LogCommand(name string, args []string, elapsed time.Duration, err error) {
	fields := []zap.Field{
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		Debug("Command failed", append(fields, zap.Error(err))...)
		return
	}
	Debug("Command completed", fields...)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
