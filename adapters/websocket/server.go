package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

type Server struct {
	upgrader      websocket.Upgrader
	submit        SubmitFunc
	messageBroker domain.MessageBroker
	hub           *Hub
}

func NewServer(messageBroker domain.MessageBroker, submit SubmitFunc) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		submit:        submit,
		messageBroker: messageBroker,
		hub:           NewHub(),
	}
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// ListenTurns relays turn events from the broker to every websocket client until ctx is
// done or the broker closes.
func (s *Server) ListenTurns(ctx context.Context) error {
	messageChan, err := s.messageBroker.Subscribe(ctx, domain.TurnTopic, "")
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", domain.TurnTopic, err)
	}

	log.WithCtx(ctx).Info("🎧 WebSocket server listening to turn events")

	for {
		select {
		case msg, ok := <-messageChan:
			if !ok {
				log.WithCtx(ctx).Info("🔒 Turn listener stopped, broker closed")
				return nil
			}
			frame, err := TurnFrame(msg.Payload, msg.Timestamp)
			if err != nil {
				log.WithCtx(ctx).Error("❌ Failed to build turn frame", zap.Error(err))
				continue
			}
			s.hub.Broadcast(frame)
			log.WithCtx(ctx).Debug("📤 Broadcasted turn to WebSocket clients", zap.Int("clients", s.hub.ClientCount()))

		case <-ctx.Done():
			log.WithCtx(ctx).Info("🔒 Turn listener stopped")
			return nil
		}
	}
}

// TurnFrame wraps a TurnEvent payload in a "turn" frame.
func TurnFrame(payload []byte, at time.Time) ([]byte, error) {
	var event domain.TurnEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decoding turn event: %w", err)
	}
	return json.Marshal(Message{Type: TypeTurn, Text: event.Turn.Content, Timestamp: at.UTC(), Data: payload})
}
