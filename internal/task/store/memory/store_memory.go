package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"custodia/internal/task"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps tasks behind a mutex. Code uniqueness is enforced the
// same way the Postgres unique index does.
type InMemoryStore struct {
	mu     sync.RWMutex
	tasks  map[id.TaskID]task.Task
	byCode map[string]id.TaskID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tasks:  make(map[id.TaskID]task.Task),
		byCode: make(map[string]id.TaskID),
	}
}

func (s *InMemoryStore) CreateIfCodeAvailable(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToUpper(t.Code)
	if _, exists := s.byCode[code]; exists {
		return sentinel.ErrConflict
	}
	s.tasks[t.ID] = *t
	s.byCode[code] = t.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, taskID id.TaskID) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tasks[taskID]; ok {
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByCode(_ context.Context, code string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if taskID, ok := s.byCode[strings.ToUpper(code)]; ok {
		t := s.tasks[taskID]
		return &t, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAssignee(_ context.Context, assigneeID id.UserID) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []task.Task
	for _, t := range s.tasks {
		if t.AssigneeID == assigneeID {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ScheduledStart.After(matched[j].ScheduledStart)
	})
	return matched, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, taskID id.TaskID, status task.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.Status = status
	s.tasks[taskID] = t
	return nil
}

func (s *InMemoryStore) Reschedule(_ context.Context, taskID id.TaskID, updated *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return sentinel.ErrNotFound
	}
	s.tasks[taskID] = *updated
	return nil
}

// InMemoryDirectory resolves assignees for tests and local development.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[id.UserID]task.Assignee
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[id.UserID]task.Assignee)}
}

func (d *InMemoryDirectory) Save(a task.Assignee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[a.ID] = a
}

func (d *InMemoryDirectory) FindAssignee(_ context.Context, userID id.UserID) (*task.Assignee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if a, ok := d.users[userID]; ok {
		return &a, nil
	}
	return nil, sentinel.ErrNotFound
}
