package speech

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

type GoogleSpeech struct {
	recognize    recognizeFunc
	closer       func() error
	languageCode string
	sampleRate   int32
}

func NewGoogleSpeech(ctx context.Context, languageCode string, sampleRate int, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Google speech client: %w", err)
	}
	return &GoogleSpeech{
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		closer:       client.Close,
		languageCode: languageCode,
		sampleRate:   int32(sampleRate),
	}, nil
}

// Recognize transcribes one LINEAR16 phrase. Empty results are reported as domain.ErrNotUnderstood.
func (g *GoogleSpeech) Recognize(ctx context.Context, audio []byte) (string, error) {
	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: g.sampleRate,
			LanguageCode:    g.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", &domain.RecognitionError{Err: err}
	}

	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", domain.ErrNotUnderstood
	}
	return strings.Join(parts, " "), nil
}

func (g *GoogleSpeech) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
