package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

func receive(t *testing.T, out <-chan domain.Outcome) domain.Outcome {
	t.Helper()
	select {
	case o := <-out:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome delivered")
		return domain.Outcome{}
	}
}

func TestBackgroundTaskLifecycle(t *testing.T) {
	release := make(chan struct{})
	task := NewBackgroundTask(domain.PredictionTask, func(context.Context) domain.Outcome {
		<-release
		return domain.Succeeded(domain.PredictionTask, "done")
	})
	out := make(chan domain.Outcome, 2)

	assert.Equal(t, TaskIdle, task.State())
	require.NoError(t, task.Start(context.Background(), out))
	assert.Equal(t, TaskRunning, task.State())
	assert.ErrorIs(t, task.Start(context.Background(), out), ErrTaskStarted)

	close(release)
	o := receive(t, out)

	assert.Equal(t, task.ID, o.TaskID)
	assert.Equal(t, domain.PredictionTask, o.Kind)
	assert.Equal(t, "done", o.Text)
	assert.Equal(t, TaskCompleted, task.State())
	select {
	case extra := <-out:
		t.Fatalf("second outcome delivered: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBackgroundTaskStampsKind(t *testing.T) {
	task := NewBackgroundTask(domain.SpeechTask, func(context.Context) domain.Outcome {
		return domain.Outcome{Status: domain.Success, Text: "hi"}
	})
	out := make(chan domain.Outcome, 1)

	require.NoError(t, task.Start(context.Background(), out))

	assert.Equal(t, domain.SpeechTask, receive(t, out).Kind)
}

func TestBackgroundTaskRecoversPanic(t *testing.T) {
	task := NewBackgroundTask(domain.PredictionTask, func(context.Context) domain.Outcome {
		var m map[string]int
		m["x"] = 1
		return domain.Outcome{}
	})
	out := make(chan domain.Outcome, 1)

	require.NoError(t, task.Start(context.Background(), out))
	o := receive(t, out)

	assert.Equal(t, domain.Failure, o.Status)
	assert.Contains(t, o.Reason, "internal error")
}

func TestPredictionJobRejectsInvalidParameters(t *testing.T) {
	predictor := echoPredictor()

	o := PredictionJob(predictor, domain.RequestParameters{Prompt: "x", MaxTokens: 0, Temperature: 0.5})(context.Background())

	assert.Equal(t, domain.Failure, o.Status)
	assert.Contains(t, o.Reason, "max tokens")
	assert.Empty(t, predictor.Calls())
}
