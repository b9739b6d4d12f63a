package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custodia/internal/event"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore holds task events behind a mutex so CreateIfAbsent is atomic,
// matching the unique-constraint behavior of the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	byKey  map[string]*event.TaskEvent
	byTask map[id.TaskID][]*event.TaskEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byKey:  make(map[string]*event.TaskEvent),
		byTask: make(map[id.TaskID][]*event.TaskEvent),
	}
}

func taskKey(taskID id.TaskID, eventType event.TaskEventType) string {
	return taskID.String() + "|" + string(eventType)
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, ev *event.TaskEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := taskKey(ev.TaskID, ev.Type)
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}
	stored := *ev
	s.byKey[key] = &stored
	s.byTask[ev.TaskID] = append(s.byTask[ev.TaskID], &stored)
	return nil
}

func (s *InMemoryStore) FindByTaskAndType(_ context.Context, taskID id.TaskID, eventType event.TaskEventType) (*event.TaskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ev, ok := s.byKey[taskKey(taskID, eventType)]; ok {
		copied := *ev
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByTask(_ context.Context, taskID id.TaskID) ([]event.TaskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]event.TaskEvent, 0, len(s.byTask[taskID]))
	for _, ev := range s.byTask[taskID] {
		events = append(events, *ev)
	}
	return events, nil
}

// InMemoryTrackerStore mirrors the tracker_events unique constraint on
// (user, school, kind, shift, date).
type InMemoryTrackerStore struct {
	mu     sync.RWMutex
	byKey  map[string]*event.TrackerEvent
	byUser map[id.UserID][]*event.TrackerEvent
}

func NewInMemoryTrackerStore() *InMemoryTrackerStore {
	return &InMemoryTrackerStore{
		byKey:  make(map[string]*event.TrackerEvent),
		byUser: make(map[id.UserID][]*event.TrackerEvent),
	}
}

func trackerKey(ev *event.TrackerEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", ev.UserID, ev.SchoolID, ev.Kind, ev.Shift, ev.Date.Format("2006-01-02"))
}

func (s *InMemoryTrackerStore) CreateIfAbsent(_ context.Context, ev *event.TrackerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trackerKey(ev)
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}
	stored := *ev
	s.byKey[key] = &stored
	s.byUser[ev.UserID] = append(s.byUser[ev.UserID], &stored)
	return nil
}

func (s *InMemoryTrackerStore) ListByUserAndDate(_ context.Context, userID id.UserID, date time.Time) ([]event.TrackerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []event.TrackerEvent
	for _, ev := range s.byUser[userID] {
		if ev.Date.Equal(date) {
			events = append(events, *ev)
		}
	}
	return events, nil
}
