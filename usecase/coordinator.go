package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const (
	MinCreativity = 0.1
	MaxCreativity = 1.0

	errorPrefix = "Error: "
	busyNotice  = "⏳ Still waiting for the previous response, voice input dropped: "
)

// Settings are the user-adjustable request settings.
type Settings struct {
	Creativity float64
	MaxTokens  int
	TopP       float64
	TopK       int
}

// Parameters builds a fresh request for prompt. Creativity maps to temperature.
func (s Settings) Parameters(prompt string) domain.RequestParameters {
	return domain.RequestParameters{
		Prompt:      prompt,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Creativity,
		TopP:        s.TopP,
		TopK:        s.TopK,
	}
}

type Options struct {
	SessionID  string
	Predictor  domain.Predictor
	Capture    domain.VoiceCapture
	Recognizer domain.Recognizer
	Speaker    domain.Speaker
	Hasher     domain.Hasher
	// Broker is optional. When set, every appended turn is published on domain.TurnTopic.
	Broker   domain.MessageBroker
	Settings Settings
	Now      func() time.Time
}

// Coordinator owns the transcript and the latest response. All methods except Next and
// Outcomes must be called from a single goroutine, the interface goroutine.
type Coordinator struct {
	sessionID  string
	predictor  domain.Predictor
	capture    domain.VoiceCapture
	recognizer domain.Recognizer
	speaker    domain.Speaker
	hasher     domain.Hasher
	broker     domain.MessageBroker
	now        func() time.Time

	settings   Settings
	transcript []domain.ChatTurn
	latest     string
	inFlight   map[domain.TaskKind]string
	outcomes   chan domain.Outcome
}

func NewCoordinator(opts Options) *Coordinator {
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Coordinator{
		sessionID:  opts.SessionID,
		predictor:  opts.Predictor,
		capture:    opts.Capture,
		recognizer: opts.Recognizer,
		speaker:    opts.Speaker,
		hasher:     opts.Hasher,
		broker:     opts.Broker,
		now:        opts.Now,
		settings:   opts.Settings,
		inFlight:   make(map[domain.TaskKind]string),
		outcomes:   make(chan domain.Outcome, 1),
	}
	c.SetCreativity(opts.Settings.Creativity)
	return c
}

func (c *Coordinator) SessionID() string { return c.sessionID }

func (c *Coordinator) withSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, log.SessionIDKey, c.sessionID)
}

// Submit appends a user turn and dispatches a prediction for it.
// Blank input is ignored and reported as domain.ErrEmptyInput.
func (c *Coordinator) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyInput
	}
	if c.InFlight(domain.PredictionTask) {
		return domain.ErrBusy
	}

	ctx = c.withSession(ctx)
	c.appendTurn(ctx, domain.UserRole, text)
	return c.dispatch(ctx, domain.PredictionTask, PredictionJob(c.predictor, c.settings.Parameters(text)))
}

// StartVoiceCapture dispatches a speech capture task.
func (c *Coordinator) StartVoiceCapture(ctx context.Context) error {
	if c.capture == nil || c.recognizer == nil {
		return domain.ErrNoVoice
	}
	if c.InFlight(domain.SpeechTask) {
		return domain.ErrBusy
	}
	return c.dispatch(c.withSession(ctx), domain.SpeechTask, SpeechJob(c.capture, c.recognizer))
}

func (c *Coordinator) dispatch(ctx context.Context, kind domain.TaskKind, job Job) error {
	task := NewBackgroundTask(kind, job)
	// Tasks outlive the request that started them.
	if err := task.Start(context.WithoutCancel(ctx), c.outcomes); err != nil {
		return err
	}
	c.inFlight[kind] = task.ID
	log.WithCtx(ctx).Debug("Task dispatched", zap.String("task_id", task.ID), zap.String("task_kind", string(kind)))
	return nil
}

// Outcomes delivers one outcome per dispatched task, in completion order.
func (c *Coordinator) Outcomes() <-chan domain.Outcome {
	return c.outcomes
}

// Next blocks until the next task outcome arrives.
func (c *Coordinator) Next(ctx context.Context) (domain.Outcome, error) {
	select {
	case o := <-c.outcomes:
		return o, nil
	case <-ctx.Done():
		return domain.Outcome{}, ctx.Err()
	}
}

// HandleOutcome routes an outcome to the handler for its task kind.
func (c *Coordinator) HandleOutcome(ctx context.Context, o domain.Outcome) {
	if c.inFlight[o.Kind] == o.TaskID {
		delete(c.inFlight, o.Kind)
	}
	switch o.Kind {
	case domain.PredictionTask:
		c.OnPredictionOutcome(ctx, o)
	case domain.SpeechTask:
		c.OnSpeechOutcome(ctx, o)
	default:
		log.WithCtx(c.withSession(ctx)).Warn("Outcome of unknown kind dropped", zap.String("task_kind", string(o.Kind)))
	}
}

// OnPredictionOutcome appends the assistant turn. Only a success replaces the latest response.
func (c *Coordinator) OnPredictionOutcome(ctx context.Context, o domain.Outcome) {
	ctx = c.withSession(ctx)
	if !o.OK() {
		c.appendTurn(ctx, domain.AssistantRole, errorPrefix+o.Reason)
		return
	}
	c.latest = o.Text
	c.appendTurn(ctx, domain.AssistantRole, o.Text)
}

// OnSpeechOutcome forwards recognized text as if it were typed. Failures are shown and go no further.
func (c *Coordinator) OnSpeechOutcome(ctx context.Context, o domain.Outcome) {
	ctx = c.withSession(ctx)
	switch {
	case o.Sentinel():
		c.appendTurn(ctx, domain.SystemRole, o.Notice())
		return
	case !o.OK():
		// A task that crashed never reached the recognizer.
		log.WithCtx(ctx).Warn("Speech task failed", zap.String("reason", o.Reason))
		c.appendTurn(ctx, domain.SystemRole, domain.RecognitionFailedText)
		return
	}
	err := c.Submit(ctx, o.Text)
	switch {
	case errors.Is(err, domain.ErrBusy):
		c.appendTurn(ctx, domain.SystemRole, busyNotice+o.Text)
	case errors.Is(err, domain.ErrEmptyInput):
	case err != nil:
		log.WithCtx(ctx).Error("Submitting recognized speech failed", zap.Error(err))
	}
}

// SpeakLatest reads the latest response aloud. It blocks until playback ends.
func (c *Coordinator) SpeakLatest(ctx context.Context) error {
	if c.latest == "" || c.speaker == nil {
		return nil
	}
	return c.speaker.Speak(c.withSession(ctx), c.latest)
}

func (c *Coordinator) appendTurn(ctx context.Context, role domain.Role, text string) domain.ChatTurn {
	seq := len(c.transcript) + 1
	turn := domain.ChatTurn{
		ID:        c.turnID(seq, role, text),
		Seq:       seq,
		Role:      role,
		Content:   text,
		Timestamp: c.now(),
	}
	c.transcript = append(c.transcript, turn)
	c.publish(ctx, turn)
	return turn
}

func (c *Coordinator) turnID(seq int, role domain.Role, text string) string {
	if c.hasher == nil {
		return fmt.Sprintf("%s-%d", c.sessionID, seq)
	}
	return c.hasher.Hash([]byte(fmt.Sprintf("%s\x00%d\x00%s\x00%s", c.sessionID, seq, role, text)))
}

func (c *Coordinator) publish(ctx context.Context, turn domain.ChatTurn) {
	if c.broker == nil {
		return
	}
	payload, err := json.Marshal(domain.TurnEvent{SessionID: c.sessionID, Turn: turn, CanSpeak: c.CanSpeak()})
	if err != nil {
		log.WithCtx(ctx).Error("Failed to marshal turn event", zap.Error(err))
		return
	}
	if err := c.broker.Publish(ctx, domain.TurnTopic, "", payload); err != nil {
		log.WithCtx(ctx).Warn("Failed to publish turn event", zap.Error(err))
	}
}

// Transcript returns a copy of the turns appended so far.
func (c *Coordinator) Transcript() []domain.ChatTurn {
	return append([]domain.ChatTurn(nil), c.transcript...)
}

func (c *Coordinator) LatestResponse() string { return c.latest }

// CanSpeak reports whether a successful response is available to read aloud.
func (c *Coordinator) CanSpeak() bool { return c.latest != "" }

func (c *Coordinator) InFlight(kind domain.TaskKind) bool {
	_, ok := c.inFlight[kind]
	return ok
}

func (c *Coordinator) Settings() Settings { return c.settings }

// SetCreativity clamps v to the creativity range and uses it for later requests.
func (c *Coordinator) SetCreativity(v float64) {
	c.settings.Creativity = min(max(v, MinCreativity), MaxCreativity)
}

// Persist saves the transcript, if there is one, under the session id.
func (c *Coordinator) Persist(ctx context.Context, store domain.TranscriptStore) error {
	if store == nil || len(c.transcript) == 0 {
		return nil
	}
	if err := store.Save(ctx, c.sessionID, c.Transcript()); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}
