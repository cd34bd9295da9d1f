package tts

import (
	"context"
	"fmt"
	"sync"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/audio"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// GoogleTTS synthesizes speech with Cloud Text-to-Speech and plays it locally.
// It is owned by the process entry point and closed on shutdown.
type GoogleTTS struct {
	synthesize   synthesizeFunc
	closer       func() error
	player       audio.Player
	languageCode string
	voiceName    string

	// speaking serialises playback; the engine is not reentrant.
	speaking sync.Mutex
}

func NewGoogleTTS(ctx context.Context, player audio.Player, languageCode, voiceName, credentialsFile string) (*GoogleTTS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	return &GoogleTTS{
		synthesize: func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			return client.SynthesizeSpeech(ctx, req)
		},
		closer:       client.Close,
		player:       player,
		languageCode: languageCode,
		voiceName:    voiceName,
	}, nil
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         g.voiceName,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
	resp, err := g.synthesize(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}

	return resp.GetAudioContent(), nil
}

// Speak synthesizes text and blocks until playback has finished.
func (g *GoogleTTS) Speak(ctx context.Context, text string) error {
	g.speaking.Lock()
	defer g.speaking.Unlock()

	clip, err := g.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	log.WithCtx(ctx).Debug("Playing synthesized speech", zap.Int("bytes", len(clip)))
	if err := g.player.Play(ctx, clip); err != nil {
		return fmt.Errorf("playing speech: %w", err)
	}
	return nil
}

func (g *GoogleTTS) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
