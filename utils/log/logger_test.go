package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCtx(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer Replace(zap.New(core))()

	ctx := context.WithValue(context.Background(), SessionIDKey, "s-1")
	ctx = context.WithValue(ctx, TaskKindKey, "prediction")
	WithCtx(ctx).Info("dispatched")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "s-1", fields["session_id"])
		assert.Equal(t, "prediction", fields["task_kind"])
		assert.NotContains(t, fields, "task_id")
	}
}

func TestWithCtxEmpty(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer Replace(zap.New(core))()

	WithCtx(context.Background()).Debug("nothing attached")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Empty(t, entries[0].ContextMap())
	}
}
