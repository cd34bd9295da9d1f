package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const (
	keyPrefix = "voicechat:transcript:"
	latestKey = "voicechat:latest"
)

// RedisStore keeps each transcript as a JSON string plus a pointer to the last saved session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url, either a host:port address or a redis:// URL, and pings it.
func NewRedisStore(ctx context.Context, url, password string, ttl time.Duration) (*RedisStore, error) {
	opts := &redis.Options{Addr: url, Password: password, DB: 0}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		if password != "" {
			parsed.Password = password
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		log.WithCtx(ctx).Error("Failed to establish Redis connection", zap.String("addr", opts.Addr), zap.Error(err))
		return nil, &domain.ServiceError{Op: "redis ping", Err: err}
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func transcriptKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, turns []domain.ChatTurn) error {
	if sessionID == "" {
		return errors.New("invalid session id")
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encoding history to JSON: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, transcriptKey(sessionID), data, s.ttl)
		pipe.Set(ctx, latestKey, sessionID, s.ttl)
		return nil
	})
	if err != nil {
		log.WithCtx(ctx).Error("Critical Redis SET operation failed", zap.String("session_id", sessionID), zap.Error(err))
		return &domain.ServiceError{Op: "redis save", Err: err}
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	val, err := s.client.Get(ctx, transcriptKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNoHistory)
	}
	if err != nil {
		return nil, &domain.ServiceError{Op: "redis load", Err: err}
	}

	var turns []domain.ChatTurn
	if err := json.Unmarshal([]byte(val), &turns); err != nil {
		return nil, fmt.Errorf("decoding history for %s: %w", sessionID, err)
	}
	return turns, nil
}

func (s *RedisStore) Latest(ctx context.Context) (string, []domain.ChatTurn, error) {
	sessionID, err := s.client.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, domain.ErrNoHistory
	}
	if err != nil {
		return "", nil, &domain.ServiceError{Op: "redis latest", Err: err}
	}

	turns, err := s.Load(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	return sessionID, turns, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
