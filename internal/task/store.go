package task

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists tasks. CreateIfCodeAvailable must reject a duplicate
// external code with sentinel.ErrConflict, backed by a unique index.
type Store interface {
	CreateIfCodeAvailable(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, taskID id.TaskID) (*Task, error)
	FindByCode(ctx context.Context, code string) (*Task, error)
	ListByAssignee(ctx context.Context, assigneeID id.UserID) ([]Task, error)
	// UpdateStatus overwrites the status unconditionally (last write wins).
	UpdateStatus(ctx context.Context, taskID id.TaskID, status Status) error
	// Reschedule replaces the scheduled window and status in one write.
	Reschedule(ctx context.Context, taskID id.TaskID, t *Task) error
}

// AssigneeDirectory resolves courier identities for assignment validation.
// Backed by the auth collaborator's user records.
type AssigneeDirectory interface {
	FindAssignee(ctx context.Context, userID id.UserID) (*Assignee, error)
}
