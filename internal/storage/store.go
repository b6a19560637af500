package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
)

// SchemaVersion is bumped whenever the persisted session shape changes.
// Records written with a different version read back as ErrNotFound so
// the session manager recreates them instead of migrating in place.
const SchemaVersion = 1

// ErrNotFound covers both a missing record and one that cannot be
// decoded; callers fall back to creating a fresh session either way.
var ErrNotFound = errors.New("session not found")

// Store persists the current chat session under a fixed key. Every
// mutating caller writes the full session so a reload reconstructs
// exact state.
type Store interface {
	Load(ctx context.Context, key string) (chat.Session, error)
	Save(ctx context.Context, key string, session chat.Session) error
	Clear(ctx context.Context, key string) error
}

// envelope wraps the session with a schema version on disk/in Redis.
type envelope struct {
	Version int          `json:"schemaVersion"`
	Session chat.Session `json:"session"`
}

func encodeSession(session chat.Session) ([]byte, error) {
	return json.Marshal(envelope{Version: SchemaVersion, Session: session})
}

// decodeSession maps any malformed or version-mismatched payload to
// ErrNotFound rather than surfacing a decode failure.
func decodeSession(data []byte) (chat.Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return chat.Session{}, ErrNotFound
	}
	if env.Version != SchemaVersion || env.Session.ID == "" {
		return chat.Session{}, ErrNotFound
	}
	return env.Session, nil
}
