package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	wsadapter "github.com/satriahrh/cocoa-fruit/voicechat/adapters/websocket"
	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func fetchToken(server, key, secret string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(server, "/")+"/api/v1/auth/token", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", key)
	req.Header.Set("X-API-Secret", secret)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("requesting token: %s", resp.Status)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token: %w", err)
	}
	return body.Token, nil
}

// wsURL turns an http(s) base URL into the websocket endpoint.
func wsURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String(), nil
}

func dial(server, token string) (*websocket.Conn, error) {
	endpoint, err := wsURL(server)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	return conn, nil
}

func submitFrame(text string) ([]byte, error) {
	return json.Marshal(wsadapter.Message{Type: wsadapter.TypeSubmit, Text: text, Timestamp: time.Now().UTC()})
}

// formatFrame renders a server frame as one line of output.
func formatFrame(raw []byte) (string, error) {
	var msg wsadapter.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", err
	}

	switch msg.Type {
	case wsadapter.TypeTurn:
		var event domain.TurnEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", event.Turn.Role, event.Turn.Content), nil
	case wsadapter.TypeError:
		return "! " + msg.Text, nil
	}
	return string(raw), nil
}
