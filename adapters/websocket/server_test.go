package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/message_broker"
	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

type submissions struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *submissions) submit(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func (s *submissions) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func startServer(t *testing.T, sub *submissions) (*Server, *message_broker.ChannelMessageBroker, string) {
	t.Helper()
	broker := message_broker.NewChannelMessageBroker()
	server := NewServer(broker, sub.submit)

	ctx, cancel := context.WithCancel(context.Background())
	go server.ListenTurns(ctx)

	e := echo.New()
	e.GET("/ws", server.Handler, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "tester")
			return next(c)
		}
	})
	ts := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		ts.Close()
		broker.Close()
	})

	return server, broker, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestTurnEventsAreBroadcast(t *testing.T) {
	server, broker, url := startServer(t, &submissions{})
	first := dial(t, url)
	second := dial(t, url)
	require.Eventually(t, func() bool { return server.GetHub().ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(domain.TurnEvent{
		SessionID: "s1",
		Turn:      domain.ChatTurn{Seq: 1, Role: domain.AssistantRole, Content: "Hi there!"},
		CanSpeak:  true,
	})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), domain.TurnTopic, "", payload))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readFrame(t, conn)
		assert.Equal(t, TypeTurn, msg.Type)
		assert.Equal(t, "Hi there!", msg.Text)

		var event domain.TurnEvent
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, "s1", event.SessionID)
		assert.True(t, event.CanSpeak)
	}
}

func TestSubmitFrames(t *testing.T) {
	sub := &submissions{}
	_, _, url := startServer(t, sub)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeSubmit, Text: "Hello"}))
	require.Eventually(t, func() bool { return len(sub.all()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Hello"}, sub.all())
}

func TestSubmitErrorsAreReported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"busy", domain.ErrBusy, "busy"},
		{"blank", domain.ErrEmptyInput, "empty_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, url := startServer(t, &submissions{err: tt.err})
			conn := dial(t, url)

			require.NoError(t, conn.WriteJSON(Message{Type: TypeSubmit, Text: "x"}))
			msg := readFrame(t, conn)
			assert.Equal(t, TypeError, msg.Type)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(msg.Data, &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestUnknownFrame(t *testing.T) {
	_, _, url := startServer(t, &submissions{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	msg := readFrame(t, conn)
	assert.Equal(t, TypeError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	msg = readFrame(t, conn)
	assert.Equal(t, TypeError, msg.Type)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	server, _, url := startServer(t, &submissions{})
	dial(t, url)
	require.Eventually(t, func() bool { return server.GetHub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub := server.GetHub()
	hub.mu.RLock()
	var client *Client
	for c := range hub.clients {
		client = c
	}
	hub.mu.RUnlock()

	hub.Unregister(client)
	assert.True(t, client.IsClosed())
	assert.Equal(t, 0, hub.ClientCount())
	assert.Error(t, client.SendMessage([]byte("late")))
}

func TestTurnFrameRejectsGarbage(t *testing.T) {
	_, err := TurnFrame([]byte("nope"), time.Now())
	assert.Error(t, err)
}
