package domain

import "strings"

type TaskKind string

const (
	PredictionTask TaskKind = "prediction"
	SpeechTask     TaskKind = "speech"
)

type OutcomeStatus string

const (
	Success OutcomeStatus = "success"
	Failure OutcomeStatus = "failure"
)

// Outcome is the single terminal result of a background task.
type Outcome struct {
	TaskID string        `json:"task_id"`
	Kind   TaskKind      `json:"kind"`
	Status OutcomeStatus `json:"status"`
	Text   string        `json:"text,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

func Succeeded(kind TaskKind, text string) Outcome {
	return Outcome{Kind: kind, Status: Success, Text: text}
}

func Failed(kind TaskKind, reason string) Outcome {
	return Outcome{Kind: kind, Status: Failure, Reason: reason}
}

func (o Outcome) OK() bool { return o.Status == Success }

// Sentinel reports whether the outcome carries the speech failure marker,
// either as a failure reason or as recognized text that begins with it.
func (o Outcome) Sentinel() bool {
	if o.OK() {
		return strings.HasPrefix(strings.TrimSpace(o.Text), SentinelMarker)
	}
	return strings.Contains(o.Reason, SentinelMarker)
}

// Notice is the text shown for a sentinel outcome.
func (o Outcome) Notice() string {
	if o.OK() {
		return o.Text
	}
	return o.Reason
}
