package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tdnguyen/plantdoc/backend/internal/model/chat"
	"github.com/tdnguyen/plantdoc/backend/internal/storage"
)

// Manager owns the current-session record. The storage key is carried
// on the handle rather than as package state so independent managers
// (and tests) never share a session. The mutex serializes every
// load-modify-save cycle; handlers run concurrently and an unguarded
// append window would drop messages.
type Manager struct {
	mu    sync.Mutex
	store storage.Store
	key   string
}

// NewManager binds a store to the key the current session lives under.
func NewManager(store storage.Store, key string) *Manager {
	return &Manager{store: store, key: key}
}

// GenerateID returns a fresh message/session identifier.
func (m *Manager) GenerateID() string {
	return uuid.NewString()
}

// Current returns the stored session, creating a fresh one when nothing
// is stored or the stored record cannot be read. Corrupt state is never
// surfaced to the caller.
func (m *Manager) Current(ctx context.Context) (chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Load(ctx, m.key)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[session] load failed, starting fresh: %v", err)
	}
	return m.create(ctx)
}

// Create provisions an empty session and persists it as current,
// superseding whatever was stored before.
func (m *Manager) Create(ctx context.Context) (chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.create(ctx)
}

// create must run with the mutex held.
func (m *Manager) create(ctx context.Context) (chat.Session, error) {
	now := time.Now().UnixMilli()
	session := chat.Session{
		ID:        m.GenerateID(),
		Messages:  []chat.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, m.key, session); err != nil {
		return chat.Session{}, fmt.Errorf("persist new session: %w", err)
	}
	return session, nil
}

// AddMessage appends a message to the named session and persists the
// result. A stale sessionID means the session was superseded mid-flight;
// the append becomes a logged no-op instead of corrupting the new one.
func (m *Manager) AddMessage(ctx context.Context, sessionID string, message chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Load(ctx, m.key)
	if err != nil {
		log.Printf("[session] add message %s: no stored session", message.ID)
		return nil
	}
	if session.ID != sessionID {
		log.Printf("[session] add message %s: session %s superseded", message.ID, sessionID)
		return nil
	}

	session.Messages = append(session.Messages, message)
	session.UpdatedAt = time.Now().UnixMilli()
	if err := m.store.Save(ctx, m.key, session); err != nil {
		return fmt.Errorf("persist message append: %w", err)
	}
	return nil
}

// UpdateMessage replaces the stored message carrying the same id. An
// unknown id is a no-op; the location flow may race a clear and must
// not take the session down with it.
func (m *Manager) UpdateMessage(ctx context.Context, sessionID string, message chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Load(ctx, m.key)
	if err != nil {
		log.Printf("[session] update message %s: no stored session", message.ID)
		return nil
	}
	if session.ID != sessionID {
		log.Printf("[session] update message %s: session %s superseded", message.ID, sessionID)
		return nil
	}

	replaced := false
	for i := range session.Messages {
		if session.Messages[i].ID == message.ID {
			session.Messages[i] = message
			replaced = true
			break
		}
	}
	if !replaced {
		log.Printf("[session] update message %s: not present, skipping", message.ID)
		return nil
	}

	session.UpdatedAt = time.Now().UnixMilli()
	if err := m.store.Save(ctx, m.key, session); err != nil {
		return fmt.Errorf("persist message update: %w", err)
	}
	return nil
}
