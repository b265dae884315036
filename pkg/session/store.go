package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrymomot/taskdesk/pkg/storage"
)

// StorageKey is the storage entry holding the JSON-encoded Session.
const StorageKey = "user"

// Store persists the single Session of this client. Reads are served from an
// in-memory copy after the first load so that every outbound request does not
// touch the backing storage.
type Store struct {
	backend storage.Storage

	mu     sync.RWMutex
	cached *Session
	loaded bool
}

// NewStore wraps a storage backend.
func NewStore(backend storage.Storage) *Store {
	return &Store{backend: backend}
}

// Load returns the persisted session or ErrSessionNotFound.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	if s.loaded {
		cached := s.cached
		s.mu.RUnlock()
		if cached == nil {
			return nil, ErrSessionNotFound
		}
		cp := *cached
		return &cp, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.backend.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.cached, s.loaded = nil, true
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	s.cached, s.loaded = &sess, true
	cp := sess
	return &cp, nil
}

// Token returns the bearer token of the persisted session, or "".
func (s *Store) Token(ctx context.Context) string {
	sess, err := s.Load(ctx)
	if err != nil {
		return ""
	}
	return sess.Token
}

// Save validates and persists sess, replacing any previous session.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	cp := *sess
	s.cached, s.loaded = &cp, true
	return nil
}

// Clear removes only the session entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.cached, s.loaded = nil, true
	return nil
}

// Purge removes every persisted key, not just the session.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("purge storage: %w", err)
	}
	s.cached, s.loaded = nil, true
	return nil
}

// Invalidate drops the in-memory copy so the next Load reads the backend.
// Used when another process is known to have changed the storage.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached, s.loaded = nil, false
}
