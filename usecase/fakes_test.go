package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

type fakePredictor struct {
	mu      sync.Mutex
	calls   [][]domain.Instance
	predict func(prompt string) ([]domain.Prediction, error)
	gate    chan struct{}
}

func (f *fakePredictor) Predict(_ context.Context, instances []domain.Instance) ([]domain.Prediction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, instances)
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	prompt, _ := instances[0]["prompt"].(string)
	return f.predict(prompt)
}

func (f *fakePredictor) Calls() [][]domain.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.Instance(nil), f.calls...)
}

func echoPredictor() *fakePredictor {
	return &fakePredictor{predict: func(prompt string) ([]domain.Prediction, error) {
		return []domain.Prediction{"re: " + prompt}, nil
	}}
}

type fakeSpeaker struct {
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.spoken = append(f.spoken, text)
	return f.err
}

type fakeCapture struct {
	pcm []byte
	err error
}

func (f fakeCapture) Capture(context.Context) ([]byte, error) { return f.pcm, f.err }

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Recognize(context.Context, []byte) (string, error) { return f.text, f.err }

type sha256Hasher struct{}

func (sha256Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

type memoryStore struct {
	saved map[string][]domain.ChatTurn
	err   error
}

func (m *memoryStore) Save(_ context.Context, sessionID string, turns []domain.ChatTurn) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]domain.ChatTurn)
	}
	m.saved[sessionID] = turns
	return nil
}

func (m *memoryStore) Load(_ context.Context, sessionID string) ([]domain.ChatTurn, error) {
	return m.saved[sessionID], nil
}

func (m *memoryStore) Latest(context.Context) (string, []domain.ChatTurn, error) {
	for id, turns := range m.saved {
		return id, turns, nil
	}
	return "", nil, nil
}

type recordingBroker struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *recordingBroker) Publish(_ context.Context, topic, _ string, message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == domain.TurnTopic {
		b.payloads = append(b.payloads, message)
	}
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string, string) (<-chan domain.Message, error) {
	return make(chan domain.Message), nil
}

func (b *recordingBroker) Close() error { return nil }
