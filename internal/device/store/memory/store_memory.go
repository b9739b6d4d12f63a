package memory

import (
	"context"
	"sync"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore holds device bindings behind a mutex so BindIfUnbound is
// atomic, matching the Postgres conditional-insert behavior.
type InMemoryStore struct {
	mu       sync.RWMutex
	bindings map[id.UserID]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bindings: make(map[id.UserID]string)}
}

func (s *InMemoryStore) FindBinding(_ context.Context, userID id.UserID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if fp, ok := s.bindings[userID]; ok {
		return fp, nil
	}
	return "", sentinel.ErrNotFound
}

func (s *InMemoryStore) BindIfUnbound(_ context.Context, userID id.UserID, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, bound := s.bindings[userID]; bound {
		return sentinel.ErrAlreadyBound
	}
	s.bindings[userID] = fingerprint
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, bound := s.bindings[userID]; !bound {
		return sentinel.ErrNotFound
	}
	delete(s.bindings, userID)
	return nil
}
