package domain

import "context"

// SentinelMarker prefixes speech capture failures that must not be forwarded as prompts.
const SentinelMarker = "❌"

const (
	NotUnderstoodText     = SentinelMarker + " Could not understand speech."
	RecognitionFailedText = SentinelMarker + " Speech recognition failed."
	NoSpeechText          = SentinelMarker + " No speech detected."
)

// VoiceCapture records one phrase from a microphone as 16-bit mono PCM.
type VoiceCapture interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Recognizer converts captured audio to text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
}

// Speaker reads text aloud and returns once playback has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}
