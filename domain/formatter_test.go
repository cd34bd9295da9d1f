package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInstancesSingle(t *testing.T) {
	inst := Instance{"prompt": "Hello", "max_tokens": 10}

	got := FormatInstances(inst)

	assert.Equal(t, []Instance{inst}, got)
}

func TestFormatInstancesSequenceUnchanged(t *testing.T) {
	seq := []Instance{{"prompt": "a"}, {"prompt": "b"}, {"prompt": "c"}}

	got := FormatInstances(seq)

	assert.Equal(t, seq, got)
}

func TestFormatInstancesOtherShapes(t *testing.T) {
	type record struct {
		Prompt string `json:"prompt"`
	}

	tests := []struct {
		name  string
		input any
		want  []Instance
	}{
		{"plain map", map[string]any{"prompt": "x"}, []Instance{{"prompt": "x"}}},
		{"slice of maps", []map[string]any{{"prompt": "x"}, {"prompt": "y"}}, []Instance{{"prompt": "x"}, {"prompt": "y"}}},
		{"struct", record{Prompt: "x"}, []Instance{{"prompt": "x"}}},
		{"scalar", "just text", []Instance{{"value": "just text"}}},
		{"mixed slice", []any{map[string]any{"prompt": "x"}, 7}, []Instance{{"prompt": "x"}, {"value": 7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInstances(tt.input))
		})
	}
}

func TestPredictionText(t *testing.T) {
	assert.Equal(t, "Hi there", PredictionText("Hi there"))
	assert.Equal(t, "", PredictionText(nil))
	assert.Equal(t, `{"content":"Hi"}`, PredictionText(map[string]any{"content": "Hi"}))
}
