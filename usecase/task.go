package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

type TaskState int32

const (
	TaskIdle TaskState = iota
	TaskRunning
	TaskCompleted
)

var ErrTaskStarted = errors.New("task already started")

// Job is the blocking operation a task runs. It reports its result as an outcome instead of an error.
type Job func(ctx context.Context) domain.Outcome

// BackgroundTask runs one job on its own goroutine and delivers exactly one outcome.
// Tasks are one-shot: once started they cannot be restarted or cancelled.
type BackgroundTask struct {
	ID    string
	Kind  domain.TaskKind
	job   Job
	state atomic.Int32
}

func NewBackgroundTask(kind domain.TaskKind, job Job) *BackgroundTask {
	return &BackgroundTask{ID: uuid.NewString(), Kind: kind, job: job}
}

func (t *BackgroundTask) State() TaskState {
	return TaskState(t.state.Load())
}

// Start runs the job in the background and sends its outcome on out.
func (t *BackgroundTask) Start(ctx context.Context, out chan<- domain.Outcome) error {
	if !t.state.CompareAndSwap(int32(TaskIdle), int32(TaskRunning)) {
		return ErrTaskStarted
	}

	ctx = context.WithValue(ctx, log.TaskIDKey, t.ID)
	ctx = context.WithValue(ctx, log.TaskKindKey, string(t.Kind))

	go func() {
		outcome := t.execute(ctx)
		outcome.TaskID = t.ID
		outcome.Kind = t.Kind
		t.state.Store(int32(TaskCompleted))
		log.WithCtx(ctx).Debug("Task completed", zap.String("status", string(outcome.Status)))
		out <- outcome
	}()
	return nil
}

func (t *BackgroundTask) execute(ctx context.Context) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.WithCtx(ctx).Error("Task panicked", zap.Any("panic", r))
			outcome = domain.Failed(t.Kind, fmt.Sprintf("internal error: %v", r))
		}
	}()
	return t.job(ctx)
}

// PredictionJob formats params, calls the predictor and keeps the first prediction as display text.
func PredictionJob(predictor domain.Predictor, params domain.RequestParameters) Job {
	return func(ctx context.Context) domain.Outcome {
		if err := params.Validate(); err != nil {
			return domain.Failed(domain.PredictionTask, err.Error())
		}

		predictions, err := predictor.Predict(ctx, domain.FormatInstances(params.Instance()))
		if err != nil {
			log.WithCtx(ctx).Warn("Prediction failed", zap.Error(err))
			return domain.Failed(domain.PredictionTask, err.Error())
		}
		if len(predictions) == 0 {
			return domain.Succeeded(domain.PredictionTask, domain.NoResponseText)
		}
		return domain.Succeeded(domain.PredictionTask, domain.PredictionText(predictions[0]))
	}
}

// SpeechJob captures one phrase and recognizes it. Every failure carries the sentinel marker.
func SpeechJob(capture domain.VoiceCapture, recognizer domain.Recognizer) Job {
	return func(ctx context.Context) domain.Outcome {
		pcm, err := capture.Capture(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrListenTimeout) {
				return domain.Failed(domain.SpeechTask, domain.NoSpeechText)
			}
			log.WithCtx(ctx).Warn("Audio capture failed", zap.Error(err))
			return domain.Failed(domain.SpeechTask, domain.RecognitionFailedText)
		}

		text, err := recognizer.Recognize(ctx, pcm)
		switch {
		case errors.Is(err, domain.ErrNotUnderstood):
			return domain.Failed(domain.SpeechTask, domain.NotUnderstoodText)
		case err != nil:
			log.WithCtx(ctx).Warn("Speech recognition failed", zap.Error(err))
			return domain.Failed(domain.SpeechTask, domain.RecognitionFailedText)
		case strings.TrimSpace(text) == "":
			return domain.Failed(domain.SpeechTask, domain.NotUnderstoodText)
		}
		return domain.Succeeded(domain.SpeechTask, text)
	}
}
