package domain

import (
	"context"
	"fmt"
)

// Instance is one input record sent to a prediction endpoint.
type Instance map[string]any

// Prediction is one output record returned by a prediction endpoint.
type Prediction any

// Predictor abstracts any remote prediction endpoint.
type Predictor interface {
	// Predict sends the instances in one round trip and returns the endpoint's predictions in order.
	Predict(ctx context.Context, instances []Instance) ([]Prediction, error)
}

// RequestParameters are built fresh for every prediction request.
type RequestParameters struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
}

func (p RequestParameters) Validate() error {
	if p.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", p.MaxTokens)
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("temperature must be within [0, 1], got %v", p.Temperature)
	}
	return nil
}

// Instance renders the parameters in the endpoint's wire shape.
func (p RequestParameters) Instance() Instance {
	return Instance{
		"prompt":       p.Prompt,
		"max_tokens":   p.MaxTokens,
		"temperature":  p.Temperature,
		"top_p":        p.TopP,
		"top_k":        p.TopK,
		"raw_response": false,
	}
}
