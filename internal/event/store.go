package event

import (
	"context"
	"time"

	"custodia/internal/task"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
)

// Store persists task custody events. CreateIfAbsent must reject a second
// event of the same type for the same task with sentinel.ErrConflict, even
// under concurrent submission.
type Store interface {
	CreateIfAbsent(ctx context.Context, ev *TaskEvent) error
	FindByTaskAndType(ctx context.Context, taskID id.TaskID, eventType TaskEventType) (*TaskEvent, error)
	ListByTask(ctx context.Context, taskID id.TaskID) ([]TaskEvent, error)
}

// TrackerStore persists exam-tracker events. CreateIfAbsent must reject a
// duplicate (user, school, kind, shift, date) tuple with sentinel.ErrConflict.
type TrackerStore interface {
	CreateIfAbsent(ctx context.Context, ev *TrackerEvent) error
	ListByUserAndDate(ctx context.Context, userID id.UserID, date time.Time) ([]TrackerEvent, error)
}

// TaskLoader and TaskStatusUpdater are the two slices of the task service the
// ledger needs.
type TaskLoader interface {
	FindByID(ctx context.Context, taskID id.TaskID) (*task.Task, error)
}

type TaskStatusUpdater interface {
	UpdateStatus(ctx context.Context, taskID id.TaskID, status task.Status) error
}

// CategoryResolver maps a calendar date onto the exam category governing its
// time windows.
type CategoryResolver interface {
	CategoryFor(ctx context.Context, date time.Time) (timewindow.Category, error)
}

// DeviceVerifier gates courier submissions on the bound device fingerprint.
type DeviceVerifier interface {
	Verify(ctx context.Context, userID id.UserID, fingerprint string) error
}

// ImageStore writes evidence photos. Save returns the stable reference later
// stored on the event record.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
