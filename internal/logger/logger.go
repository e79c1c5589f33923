// Package logger provides structured logging for hupmon using
// go.uber.org/zap. Output always goes to standard error, since standard
// output is reserved for the one-shot status line and standard input/output
// are the wrapped terminal itself during a proxy session.
package logger

import (
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger construction options.
type Config struct {
	Level  string // debug, info, warn, error; default warn
	Format string // json, console; default console
}

// Logger wraps zap.Logger with a session-scoped trace field.
type Logger struct {
	zap *zap.Logger
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// Default returns the process-wide logger, built from HUPMON_LOG_LEVEL and
// HUPMON_LOG_FORMAT on first use.
func Default() *Logger {
	defaultLoggerOnce.Do(func() {
		l, err := New(Config{
			Level:  os.Getenv("HUPMON_LOG_LEVEL"),
			Format: os.Getenv("HUPMON_LOG_FORMAT"),
		})
		if err != nil {
			fallback, _ := zap.NewProduction()
			l = &Logger{zap: fallback}
		}
		defaultLogger = l
	})
	return defaultLogger
}

// New constructs a Logger writing to standard error, tagged with a random
// session identifier so multiple overlapping wrap sessions (e.g. nested
// invocations in a test harness) can be told apart in shared logs.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	zapLogger := zap.New(core).With(zap.String("session", uuid.NewString()))

	return &Logger{zap: zapLogger}, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.WarnLevel, nil
	}
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}

// WithError returns a Logger with the error field attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zap: l.zap.With(zap.Error(err))}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.zap.Sync() }
