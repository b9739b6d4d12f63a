// Package task owns custody task lifecycle: creation, assignment, and the
// status machine driven by checkpoint events.
package task

import (
	"strings"
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Status is the task state machine. Transitions are derived facts applied
// last-write-wins:
//
//	PENDING -> IN_PROGRESS   first in-window pickup event
//	IN_PROGRESS -> COMPLETED final event in-window
//	any -> SUSPICIOUS        out-of-window event or red flag
//
// SUSPICIOUS does not block further submissions; COMPLETED does.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusSuspicious Status = "SUSPICIOUS"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusSuspicious: true,
}

// ParseStatus validates external status input.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !validStatuses[status] {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown task status")
	}
	return status, nil
}

// Task tracks movement of sealed material between two locations. Never
// deleted; terminal states are final facts.
type Task struct {
	ID             id.TaskID     `json:"id"`
	Code           string        `json:"code"`
	Source         string        `json:"source"`
	Destination    string        `json:"destination"`
	AssigneeID     id.UserID     `json:"assignee_id"`
	ScheduledStart time.Time     `json:"scheduled_start"`
	ScheduledEnd   time.Time     `json:"scheduled_end"`
	ExpectedTravel time.Duration `json:"expected_travel"`
	DoubleShift    bool          `json:"double_shift"`
	Status         Status        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Spec is the validated input for task creation.
type Spec struct {
	Code           string
	Source         string
	Destination    string
	AssigneeID     id.UserID
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	ExpectedTravel time.Duration
	DoubleShift    bool
}

// NewTask validates the spec and constructs a PENDING task.
func NewTask(spec Spec, defaultTravel time.Duration, now time.Time) (*Task, error) {
	code := strings.TrimSpace(spec.Code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "task code is required")
	}
	if spec.Source == "" || spec.Destination == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "source and destination are required")
	}
	if spec.AssigneeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "assignee is required")
	}
	if !spec.ScheduledEnd.After(spec.ScheduledStart) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "end time must be after start time")
	}

	travel := spec.ExpectedTravel
	if travel <= 0 {
		travel = defaultTravel
	}

	return &Task{
		ID:             id.NewTaskID(),
		Code:           code,
		Source:         spec.Source,
		Destination:    spec.Destination,
		AssigneeID:     spec.AssigneeID,
		ScheduledStart: spec.ScheduledStart,
		ScheduledEnd:   spec.ScheduledEnd,
		ExpectedTravel: travel,
		DoubleShift:    spec.DoubleShift,
		Status:         StatusPending,
		CreatedAt:      now,
	}, nil
}

// IsLocked reports whether the task accepts further event submissions.
func (t *Task) IsLocked() bool { return t.Status == StatusCompleted }

// Assignee is the slice of the courier identity this package needs to
// validate assignment. The auth collaborator owns the full user record.
type Assignee struct {
	ID     id.UserID
	Role   id.Role
	Active bool
}

// Eligible reports whether the user can be assigned custody tasks.
func (a Assignee) Eligible() bool { return a.Active && a.Role.CanCarry() }
