package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// openaiMaxCompletionTokens is the completion ceiling of the gpt-4o family.
const openaiMaxCompletionTokens = 16384

// OpenAIPredictor serves prediction instances with any OpenAI-compatible chat completions API.
type OpenAIPredictor struct {
	client *openai.Client
	model  string
}

func NewOpenAIPredictor(apiKey, baseURL, model string) *OpenAIPredictor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIPredictor{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAIPredictor) Predict(ctx context.Context, instances []domain.Instance) ([]domain.Prediction, error) {
	predictions := make([]domain.Prediction, 0, len(instances))
	for _, inst := range instances {
		resp, err := o.client.CreateChatCompletion(ctx, completionRequest(o.model, inst))
		if err != nil {
			return nil, &domain.ServiceError{Op: "chat completion", Err: err}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		predictions = append(predictions, resp.Choices[0].Message.Content)
	}
	return predictions, nil
}

func completionRequest(model string, inst domain.Instance) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: stringField(inst, "prompt")},
		},
	}
	if v, ok := numberField(inst, "temperature"); ok {
		req.Temperature = float32(v)
	}
	if v, ok := numberField(inst, "top_p"); ok {
		req.TopP = float32(v)
	}
	if v, ok := numberField(inst, "max_tokens"); ok {
		req.MaxTokens = int(min(v, openaiMaxCompletionTokens))
	}
	return req
}
