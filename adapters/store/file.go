package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const (
	filePrefix = "chat_history_"
	fileSuffix = ".json"
)

// FileStore keeps one JSON file per session in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.dir, filePrefix+sessionID+fileSuffix), nil
}

// Save writes the whole transcript, replacing any earlier save of the same session.
func (s *FileStore) Save(ctx context.Context, sessionID string, turns []domain.ChatTurn) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(turns); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding history to JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storing history file: %w", err)
	}

	log.WithCtx(ctx).Debug("History written", zap.String("path", path), zap.Int("turns", len(turns)))
	return nil
}

func (s *FileStore) Load(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNoHistory)
	}
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var turns []domain.ChatTurn
	if err := json.NewDecoder(f).Decode(&turns); err != nil {
		return nil, fmt.Errorf("decoding history file %s: %w", path, err)
	}
	return turns, nil
}

// Latest loads the session whose file was modified last.
func (s *FileStore) Latest(ctx context.Context) (string, []domain.ChatTurn, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("reading history dir: %w", err)
	}

	var (
		latestID  string
		latestMod int64
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		mod := info.ModTime().UnixNano()
		if latestID == "" || mod > latestMod || (mod == latestMod && id > latestID) {
			latestID, latestMod = id, mod
		}
	}
	if latestID == "" {
		return "", nil, domain.ErrNoHistory
	}

	turns, err := s.Load(ctx, latestID)
	if err != nil {
		return "", nil, err
	}
	return latestID, turns, nil
}
