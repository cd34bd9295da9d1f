package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

// SubmitFunc hands text typed by a remote client to the conversation.
type SubmitFunc func(ctx context.Context, text string) error

// Client is one remote follower. readPump owns reads, writePump owns data frames and keepalive pings.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	submit SubmitFunc
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
}

// Frame types exchanged with remote clients.
const (
	TypeSubmit = "submit"
	TypeTurn   = "turn"
	TypeError  = "error"
)

type Message struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendQueue      = 256
)

func NewClient(conn *websocket.Conn, userID string, submit SubmitFunc) *Client {
	ctx := context.WithValue(context.Background(), log.UserIDKey, userID)
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendQueue),
		submit: submit,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the pumps. It returns immediately; Context is done once the connection is gone.
func (c *Client) Run() {
	c.conn.SetCloseHandler(func(code int, text string) error {
		log.WithCtx(c.ctx).Debug("Peer closed connection", zap.Int("code", code), zap.String("text", text))
		c.Close()
		return nil
	})
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
}

// Close is idempotent. The send queue is never closed; SendMessage checks closed under the lock.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
	c.conn.Close()
}

func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) Context() context.Context {
	return c.ctx
}

// readPump decodes client frames until the connection fails or goes quiet past pongWait.
func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithCtx(c.ctx).Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad_request", "malformed frame", err.Error())
		return
	}

	switch msg.Type {
	case TypeSubmit:
		if c.submit == nil {
			c.sendError("unavailable", "submitting is not enabled", "")
			return
		}
		err := c.submit(c.ctx, msg.Text)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrEmptyInput):
			c.sendError("empty_input", "nothing to send", "")
		case errors.Is(err, domain.ErrBusy):
			c.sendError("busy", "a response is still pending", "")
		default:
			c.sendError("internal", "submit failed", err.Error())
		}
	default:
		c.sendError("bad_request", "unknown frame type", strings.TrimSpace(msg.Type))
	}
}

func (c *Client) sendError(code, message, details string) {
	data, _ := json.Marshal(ErrorResponse{Code: code, Message: message, Details: details})
	frame, err := json.Marshal(Message{Type: TypeError, Text: message, Timestamp: time.Now().UTC(), Data: data})
	if err != nil {
		return
	}
	if err := c.SendMessage(frame); err != nil {
		log.WithCtx(c.ctx).Debug("Dropping error frame", zap.Error(err))
	}
}

// writePump is the only writer of data frames.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.WithCtx(c.ctx).Debug("Write failed, dropping client", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.WithCtx(c.ctx).Debug("Ping failed, dropping client", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// SendMessage queues a message for the client. A client that cannot keep up is closed.
func (c *Client) SendMessage(message []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- message:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.Close()
		return websocket.ErrCloseSent
	}
}
