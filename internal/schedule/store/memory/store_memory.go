package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"custodia/internal/schedule"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps schedule entries keyed the same way the Postgres
// unique index does, so duplicate detection behaves identically.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ScheduleID]schedule.Entry
	unique  map[string]id.ScheduleID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[id.ScheduleID]schedule.Entry),
		unique:  make(map[string]id.ScheduleID),
	}
}

func uniqueKey(e *schedule.Entry) string {
	return strings.Join([]string{
		e.CenterID.String(),
		e.Date.Format(time.DateOnly),
		strings.ToLower(e.Class),
		strings.ToLower(e.Subject),
	}, "|")
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, entry *schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := uniqueKey(entry)
	if _, exists := s.unique[key]; exists {
		return sentinel.ErrConflict
	}
	s.entries[entry.ID] = *entry
	s.unique[key] = entry.ID
	return nil
}

func (s *InMemoryStore) ListByDate(_ context.Context, date time.Time) ([]schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []schedule.Entry
	for _, e := range s.entries {
		if e.Date.Equal(date) {
			matched = append(matched, e)
		}
	}
	sortByCreated(matched)
	return matched, nil
}

func (s *InMemoryStore) ListByCenterAndDate(_ context.Context, centerID id.CenterID, date time.Time) ([]schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []schedule.Entry
	for _, e := range s.entries {
		if e.CenterID == centerID && e.Date.Equal(date) {
			matched = append(matched, e)
		}
	}
	sortByCreated(matched)
	return matched, nil
}

func (s *InMemoryStore) NextActiveDate(_ context.Context, centerID id.CenterID, after time.Time) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *time.Time
	for _, e := range s.entries {
		if e.CenterID != centerID || !e.Active || !e.Date.After(after) {
			continue
		}
		if next == nil || e.Date.Before(*next) {
			d := e.Date
			next = &d
		}
	}
	if next == nil {
		return nil, sentinel.ErrNotFound
	}
	return next, nil
}

func sortByCreated(entries []schedule.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Created.Before(entries[j].Created)
	})
}

// InMemoryCenterStore resolves centers for tests and local development.
type InMemoryCenterStore struct {
	mu      sync.RWMutex
	centers map[id.CenterID]schedule.Center
}

func NewInMemoryCenterStore() *InMemoryCenterStore {
	return &InMemoryCenterStore{centers: make(map[id.CenterID]schedule.Center)}
}

func (s *InMemoryCenterStore) Save(center schedule.Center) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers[center.ID] = center
}

func (s *InMemoryCenterStore) FindByID(_ context.Context, centerID id.CenterID) (*schedule.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if center, ok := s.centers[centerID]; ok {
		return &center, nil
	}
	return nil, sentinel.ErrNotFound
}
