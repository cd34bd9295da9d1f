package message_broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const topicBuffer = 100

var ErrBrokerClosed = errors.New("message broker is closed")

// ChannelMessageBroker is the in-process broker. Each topic/routing-key pair
// is one buffered queue; a full queue rejects the publish instead of waiting.
type ChannelMessageBroker struct {
	topics map[string]chan domain.Message
	mu     sync.Mutex
	closed bool
}

func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		topics: make(map[string]chan domain.Message),
	}
}

func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}

// channel returns the topic channel, creating it on first use. Callers hold b.mu.
func (b *ChannelMessageBroker) channel(topic, routingKey string) chan domain.Message {
	key := makeKey(topic, routingKey)
	ch, exists := b.topics[key]
	if !exists {
		ch = make(chan domain.Message, topicBuffer)
		b.topics[key] = ch
	}
	return ch
}

func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBrokerClosed
	}

	select {
	case b.channel(topic, routingKey) <- domain.Message{Topic: topic, RoutingKey: routingKey, Payload: message, Timestamp: time.Now()}:
		log.WithCtx(ctx).Debug("Published", zap.String("key", makeKey(topic, routingKey)), zap.Int("bytes", len(message)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("topic %s is full (%d queued)", makeKey(topic, routingKey), topicBuffer)
	}
}

// Subscribe returns the queue for the key. Subscribers of the same key compete for messages.
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	log.WithCtx(ctx).Info("Subscribed", zap.String("key", makeKey(topic, routingKey)))
	return b.channel(topic, routingKey), nil
}

// Close ends every subscription by closing its queue. Calling it twice is harmless.
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	for _, queue := range b.topics {
		close(queue)
	}
	log.With(zap.Int("topics", len(b.topics))).Info("Message broker closed")
	b.topics = make(map[string]chan domain.Message)
	return nil
}

// TopicCount returns the number of active topics.
func (b *ChannelMessageBroker) TopicCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}

func (b *ChannelMessageBroker) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
