package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger with additional functionality.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a new logger instance with production configuration.
func NewLogger() (*Logger, error) {
	return newAtLevel(zapcore.InfoLevel)
}

// NewDebugLogger creates a logger that also emits debug-level entries.
func NewDebugLogger() (*Logger, error) {
	return newAtLevel(zapcore.DebugLevel)
}

// NewNopLogger creates a logger that discards all entries. Useful in tests
// and in parameter sweeps where per-run output is unwanted.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func newAtLevel(level zapcore.Level) (*Logger, error) {
	config := zap.NewProductionConfig()

	// Set the output to stdout
	config.OutputPaths = []string{"stdout"}

	// Set the error output to stderr
	config.ErrorOutputPaths = []string{"stderr"}

	// Set the log level
	config.Level = zap.NewAtomicLevelAt(level)

	// Create the logger
	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: zapLogger,
	}, nil
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
