package domain

import (
	"context"
	"time"
)

type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)

// ChatTurn is immutable once appended to a transcript.
type ChatTurn struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore persists a finished session's transcript.
type TranscriptStore interface {
	Save(ctx context.Context, sessionID string, turns []ChatTurn) error
	Load(ctx context.Context, sessionID string) ([]ChatTurn, error)
	// Latest returns the most recently saved session.
	Latest(ctx context.Context) (string, []ChatTurn, error)
}

// Hasher derives stable turn ids from turn content.
type Hasher interface {
	Hash(data []byte) string
}
