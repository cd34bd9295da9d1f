package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/audio"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/hasher"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/llm"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/speech"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/store"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/tts"
	"github.com/satriahrh/cocoa-fruit/voicechat/config"
	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/usecase"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const turnIDSize = 16

// app holds the clients shared by every command. Close releases them in reverse order.
type app struct {
	cfg        *config.Config
	predictor  domain.Predictor
	capture    domain.VoiceCapture
	recognizer domain.Recognizer
	speaker    domain.Speaker
	store      domain.TranscriptStore
	closers    []func() error
}

// loadEnv applies a dotenv file. Variables already set in the environment win.
func loadEnv(path string) {
	if path == "" {
		return
	}
	if err := gotenv.Load(path); err != nil {
		log.With(zap.String("file", path)).Debug("No env file loaded", zap.Error(err))
	}
}

// loadConfig reads envFile, when present, then the environment, and validates it.
func loadConfig(envFile string) (*config.Config, error) {
	loadEnv(envFile)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newPredictor(ctx context.Context, cfg *config.Config) (domain.Predictor, func() error, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		p, err := llm.NewGeminiPredictor(ctx, cfg.ProjectID, cfg.Location, cfg.GeminiModel)
		return p, nil, err
	case config.BackendOpenAI:
		return llm.NewOpenAIPredictor(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil, nil
	default:
		p, err := llm.NewVertexPredictor(ctx, cfg.EndpointPath(), cfg.APIEndpoint, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}
}

func newStore(ctx context.Context, cfg *config.Config) (domain.TranscriptStore, func() error, error) {
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		s, err := store.NewRedisStore(pingCtx, cfg.RedisURL, cfg.RedisPassword, 0)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	s, err := store.NewFileStore(cfg.HistoryDir)
	return s, nil, err
}

// newApp builds the prediction client and the transcript store. With voice set it also
// builds the microphone, recognizer and speaker; voice failures only disable voice.
func newApp(ctx context.Context, cfg *config.Config, voice bool) (*app, error) {
	a := &app{cfg: cfg}

	predictor, closePredictor, err := newPredictor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s predictor: %w", cfg.Backend, err)
	}
	a.predictor = predictor
	if closePredictor != nil {
		a.onClose(closePredictor)
	}

	s, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening transcript store: %w", err)
	}
	a.store = s
	if closeStore != nil {
		a.onClose(closeStore)
	}

	if voice {
		a.setupVoice(ctx)
	}
	return a, nil
}

func (a *app) setupVoice(ctx context.Context) {
	cfg := a.cfg

	recognizer, err := speech.NewGoogleSpeech(ctx, cfg.SpeechLanguage, cfg.SampleRate, cfg.CredentialsFile)
	if err != nil {
		log.WithCtx(ctx).Warn("Speech recognition disabled", zap.Error(err))
	} else {
		a.onClose(recognizer.Close)
		name, args := config.SplitCommand(cfg.RecorderCommand)
		listener := audio.NewListener(audio.DefaultListenConfig(cfg.SampleRate))
		a.capture = audio.NewMicrophone(audio.CommandRecorder{Name: name, Args: args}, listener)
		a.recognizer = recognizer
	}

	name, args := config.SplitCommand(cfg.PlayerCommand)
	speaker, err := tts.NewGoogleTTS(ctx, audio.CommandPlayer{Name: name, Args: args}, cfg.TTSLanguage, cfg.TTSVoice, cfg.CredentialsFile)
	if err != nil {
		log.WithCtx(ctx).Warn("Text to speech disabled", zap.Error(err))
		return
	}
	a.onClose(speaker.Close)
	a.speaker = speaker
}

func (a *app) coordinator(broker domain.MessageBroker, creativity float64) *usecase.Coordinator {
	return usecase.NewCoordinator(usecase.Options{
		Predictor:  a.predictor,
		Capture:    a.capture,
		Recognizer: a.recognizer,
		Speaker:    a.speaker,
		Hasher:     hasher.New(turnIDSize),
		Broker:     broker,
		Settings: usecase.Settings{
			Creativity: creativity,
			MaxTokens:  a.cfg.MaxTokens,
			TopP:       a.cfg.TopP,
			TopK:       a.cfg.TopK,
		},
	})
}
