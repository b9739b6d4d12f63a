package memory

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/audit"
)

// InMemoryStore keeps audit entries in a slice. Used by unit tests and local
// development; ordering mirrors the Postgres store (newest first on reads).
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.newestFirst(s.entries)
	if offset >= len(sorted) {
		return nil, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType, entityID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			matched = append(matched, e)
		}
	}
	return s.newestFirst(matched), nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actorID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range s.entries {
		if e.ActorID != nil && e.ActorID.String() == actorID {
			matched = append(matched, e)
		}
	}
	return s.newestFirst(matched), nil
}

func (s *InMemoryStore) newestFirst(entries []audit.Entry) []audit.Entry {
	sorted := append([]audit.Entry{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted
}
