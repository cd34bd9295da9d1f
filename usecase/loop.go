package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

// Action runs on the loop goroutine with exclusive access to the coordinator.
type Action func(ctx context.Context, c *Coordinator) error

// Loop is the interface goroutine for headless front ends. It applies actions and task
// outcomes one at a time, in arrival order.
type Loop struct {
	coordinator *Coordinator
	store       domain.TranscriptStore
	actions     chan func(ctx context.Context)
}

func NewLoop(coordinator *Coordinator, store domain.TranscriptStore) *Loop {
	return &Loop{
		coordinator: coordinator,
		store:       store,
		actions:     make(chan func(ctx context.Context)),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case o := <-l.coordinator.Outcomes():
			l.coordinator.HandleOutcome(ctx, o)
		case action := <-l.actions:
			action(ctx)
		case <-ctx.Done():
			// Store history on the way out.
			if err := l.coordinator.Persist(context.WithoutCancel(ctx), l.store); err != nil {
				log.WithCtx(ctx).Error("Error storing history", zap.Error(err))
			} else {
				log.WithCtx(ctx).Info("History stored", zap.String("session_id", l.coordinator.SessionID()))
			}
			return nil
		}
	}
}

// Do runs fn on the loop goroutine and waits for its result.
func (l *Loop) Do(ctx context.Context, fn Action) error {
	done := make(chan error, 1)
	action := func(loopCtx context.Context) {
		done <- fn(loopCtx, l.coordinator)
	}

	select {
	case l.actions <- action:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
