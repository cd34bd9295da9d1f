package domain

import (
	"context"
	"time"
)

// TurnTopic carries every turn appended to a transcript.
const TurnTopic = "transcript.turns"

// MessageBroker fans turn events out from the coordinator to followers
// such as the websocket server. Delivery is best effort.
type MessageBroker interface {
	// Publish must not block the caller on slow subscribers.
	Publish(ctx context.Context, topic string, routingKey string, message []byte) error
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Message, error)
	Close() error
}

// Message is one delivery on a subscribed channel.
type Message struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

// TurnEvent is published on TurnTopic after a turn is appended.
type TurnEvent struct {
	SessionID string   `json:"session_id"`
	Turn      ChatTurn `json:"turn"`
	CanSpeak  bool     `json:"can_speak"`
}
