package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// geminiMaxOutputTokens is the ceiling the flash models accept.
const geminiMaxOutputTokens = 8192

// GeminiPredictor serves prediction instances with a Gemini model hosted on Vertex AI.
type GeminiPredictor struct {
	client *genai.Client
	model  string
}

func NewGeminiPredictor(ctx context.Context, project, location, model string) (*GeminiPredictor, error) {
	client, err := genai.NewClient(
		ctx,
		&genai.ClientConfig{
			Backend:     genai.BackendVertexAI,
			Project:     project,
			Location:    location,
			HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiPredictor{client: client, model: model}, nil
}

// Predict answers every instance with one GenerateContent call, in order.
func (g *GeminiPredictor) Predict(ctx context.Context, instances []domain.Instance) ([]domain.Prediction, error) {
	predictions := make([]domain.Prediction, 0, len(instances))
	for _, inst := range instances {
		resp, err := g.client.Models.GenerateContent(
			ctx,
			g.model,
			genai.Text(stringField(inst, "prompt")),
			generateConfig(inst),
		)
		if err != nil {
			return nil, &domain.ServiceError{Op: "generate content", Err: err}
		}
		predictions = append(predictions, resp.Text())
	}
	return predictions, nil
}

func generateConfig(inst domain.Instance) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if v, ok := numberField(inst, "temperature"); ok {
		cfg.Temperature = genai.Ptr(float32(v))
	}
	if v, ok := numberField(inst, "top_p"); ok {
		cfg.TopP = genai.Ptr(float32(v))
	}
	if v, ok := numberField(inst, "top_k"); ok {
		cfg.TopK = genai.Ptr(float32(v))
	}
	if v, ok := numberField(inst, "max_tokens"); ok {
		cfg.MaxOutputTokens = int32(min(v, geminiMaxOutputTokens))
	}
	return cfg
}

func stringField(inst domain.Instance, key string) string {
	if s, ok := inst[key].(string); ok {
		return s
	}
	return ""
}

func numberField(inst domain.Instance, key string) (float64, bool) {
	switch v := inst[key].(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
