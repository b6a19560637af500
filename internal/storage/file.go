package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
)

// FileStore keeps one JSON file per key under a data directory. It is
// the default backend and mirrors the single-record-per-key layout the
// web client used. Writes go through a temp file plus rename so a
// crashed write never leaves a half-written record behind.
type FileStore struct {
	dir string
}

// NewFileStore ensures the data directory exists.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the session stored under key. Missing files and unreadable
// payloads both surface as ErrNotFound.
func (s *FileStore) Load(_ context.Context, key string) (chat.Session, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return chat.Session{}, ErrNotFound
	}
	return decodeSession(data)
}

// Save writes the full session atomically.
func (s *FileStore) Save(_ context.Context, key string, session chat.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the stored record; clearing an absent key is fine.
func (s *FileStore) Clear(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
