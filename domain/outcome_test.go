package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeSentinel(t *testing.T) {
	tests := []struct {
		name     string
		outcome  Outcome
		sentinel bool
		notice   string
	}{
		{"failure with marker", Failed(SpeechTask, NoSpeechText), true, NoSpeechText},
		{"success with marker", Succeeded(SpeechTask, "  "+NotUnderstoodText), true, "  " + NotUnderstoodText},
		{"plain failure", Failed(SpeechTask, "internal error: boom"), false, "internal error: boom"},
		{"recognized text", Succeeded(SpeechTask, "hello"), false, "hello"},
		{"marker inside text", Succeeded(SpeechTask, "say "+SentinelMarker), false, "say " + SentinelMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sentinel, tt.outcome.Sentinel())
			assert.Equal(t, tt.notice, tt.outcome.Notice())
		})
	}
}
