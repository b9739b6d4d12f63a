package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	taskmetrics "custodia/internal/task/metrics"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
	"custodia/pkg/requestcontext"
)

// Service orchestrates the task registry. Status writes and their audit
// entries run inside one transaction so the trail never diverges from the
// stored status.
type Service struct {
	store         Store
	directory     AssigneeDirectory
	auditor       *audit.Recorder
	runner        tx.Runner
	metrics       *taskmetrics.Metrics
	logger        *slog.Logger
	defaultTravel time.Duration
}

func NewService(store Store, directory AssigneeDirectory, auditor *audit.Recorder, runner tx.Runner, metrics *taskmetrics.Metrics, logger *slog.Logger, defaultTravel time.Duration) *Service {
	if runner == nil {
		runner = tx.PassthroughRunner{}
	}
	return &Service{
		store:         store,
		directory:     directory,
		auditor:       auditor,
		runner:        runner,
		metrics:       metrics,
		logger:        logger,
		defaultTravel: defaultTravel,
	}
}

// Create validates the spec, persists a PENDING task, and writes the created
// and assigned audit entries atomically with the insert.
func (s *Service) Create(ctx context.Context, spec Spec) (*Task, error) {
	assignee, err := s.directory.FindAssignee(ctx, spec.AssigneeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "assignee does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve assignee")
	}
	if !assignee.Eligible() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "assignee is not an active courier")
	}

	t, err := NewTask(spec, s.defaultTravel, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateIfCodeAvailable(txCtx, t); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "task code already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create task")
		}
		if err := s.auditor.Record(txCtx, audit.ActionTaskCreated, "task", t.ID.String(), t.Code); err != nil {
			return err
		}
		return s.auditor.Record(txCtx, audit.ActionTaskAssigned, "task", t.ID.String(), "assigned to "+t.AssigneeID.String())
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTaskCreated()
	}
	return t, nil
}

// FindByID loads one task.
func (s *Service) FindByID(ctx context.Context, taskID id.TaskID) (*Task, error) {
	t, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "task not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load task")
	}
	return t, nil
}

// FindForCourier returns the courier's own tasks, newest scheduled first.
func (s *Service) FindForCourier(ctx context.Context, courierID id.UserID) ([]Task, error) {
	tasks, err := s.store.ListByAssignee(ctx, courierID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tasks")
	}
	return tasks, nil
}

// UpdateStatus overwrites the task status and audits the change with an
// action code matching the new status, in one transaction.
func (s *Service) UpdateStatus(ctx context.Context, taskID id.TaskID, status Status) error {
	action := audit.ActionTaskStatusChanged
	switch status {
	case StatusSuspicious:
		action = audit.ActionTaskFlaggedSuspicious
	case StatusCompleted:
		action = audit.ActionTaskCompleted
	}

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateStatus(txCtx, taskID, status); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "task not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update task status")
		}
		return s.auditor.Record(txCtx, action, "task", taskID.String(), string(status))
	})
	if err != nil {
		return err
	}

	if s.metrics != nil && status == StatusSuspicious {
		s.metrics.IncrementTaskFlagged()
	}
	return nil
}

// ResetForTesting re-opens a task with a fresh 4-hour window starting now.
// QA escape hatch: administrators only, always audited. The role check lives
// here, not just in the route wiring, so no alternate caller can skip it.
func (s *Service) ResetForTesting(ctx context.Context, taskID id.TaskID) (*Task, error) {
	if requestcontext.ActorRole(ctx) != id.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrator role required")
	}

	t, err := s.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	t.ScheduledStart = now
	t.ScheduledEnd = now.Add(4 * time.Hour)
	t.Status = StatusPending

	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Reschedule(txCtx, taskID, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset task")
		}
		return s.auditor.Record(txCtx, audit.ActionTaskReset, "task", taskID.String(), "window reset for testing")
	})
	if err != nil {
		return nil, err
	}

	s.logger.WarnContext(ctx, "task reset for testing",
		"task_id", taskID.String(),
		"actor_id", requestcontext.ActorID(ctx).String(),
	)
	return t, nil
}
