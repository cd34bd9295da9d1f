package log

import (
	"context"
	"os"

	"go.uber.org/zap"
)

type ctxKey string

const (
	SessionIDKey ctxKey = "session_id"
	TaskIDKey    ctxKey = "task_id"
	TaskKindKey  ctxKey = "task_kind"
	UserIDKey    ctxKey = "user_id"
)

var logger *zap.Logger

func init() {
	logger = newLogger(os.Getenv("DEBUG") == "true", "")
}

func newLogger(debug bool, path string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// ToFile redirects all logging to path. The terminal UI owns stdout and stderr while it runs.
func ToFile(path string) {
	logger = newLogger(os.Getenv("DEBUG") == "true", path)
}

// Replace swaps the package logger, mainly for tests.
func Replace(l *zap.Logger) func() {
	prev := logger
	logger = l
	return func() { logger = prev }
}

func Sync() {
	_ = logger.Sync()
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	for _, key := range []ctxKey{SessionIDKey, TaskIDKey, TaskKindKey, UserIDKey} {
		if v := ctx.Value(key); v != nil {
			fields = append(fields, zap.Any(string(key), v))
		}
	}

	return logger.With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return logger.With(fields...)
}
