package message_broker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

func TestPublishSubscribe(t *testing.T) {
	b := NewChannelMessageBroker()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, domain.TurnTopic, "")
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, domain.TurnTopic, "", []byte("one")))
	require.NoError(t, b.Publish(ctx, domain.TurnTopic, "", []byte("two")))
	require.NoError(t, b.Publish(ctx, "other", "", []byte("elsewhere")))

	first := <-ch
	second := <-ch
	assert.Equal(t, "one", string(first.Payload))
	assert.Equal(t, domain.TurnTopic, first.Topic)
	assert.Equal(t, "two", string(second.Payload))
	assert.Len(t, ch, 0)
	assert.Equal(t, 2, b.TopicCount())
}

func TestPublishBeforeSubscribeIsQueued(t *testing.T) {
	b := NewChannelMessageBroker()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "t", "k", []byte("early")))
	ch, err := b.Subscribe(ctx, "t", "k")
	require.NoError(t, err)

	assert.Equal(t, "early", string((<-ch).Payload))
}

func TestPublishFullTopic(t *testing.T) {
	b := NewChannelMessageBroker()
	ctx := context.Background()

	for i := 0; i < topicBuffer; i++ {
		require.NoError(t, b.Publish(ctx, "t", "", []byte(fmt.Sprint(i))))
	}

	assert.ErrorContains(t, b.Publish(ctx, "t", "", []byte("overflow")), "full")
}

func TestClose(t *testing.T) {
	b := NewChannelMessageBroker()
	ctx := context.Background()
	ch, err := b.Subscribe(ctx, "t", "")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, open := <-ch
	assert.False(t, open)
	assert.True(t, b.IsClosed())
	assert.ErrorIs(t, b.Publish(ctx, "t", "", nil), ErrBrokerClosed)
	_, err = b.Subscribe(ctx, "t", "")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}
