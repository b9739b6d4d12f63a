package event

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/schedule"
	"custodia/internal/task"
	taskmetrics "custodia/internal/task/metrics"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service is the custody event ledger. Submissions pass through the device
// guard, ownership and lock checks, the time-window engine, and the red-flag
// detector, with every branch leaving an audit entry.
type Service struct {
	store      Store
	trackers   TrackerStore
	tasks      TaskLoader
	statuses   TaskStatusUpdater
	categories CategoryResolver
	devices    DeviceVerifier
	images     ImageStore
	auditor    *audit.Recorder
	metrics    *taskmetrics.Metrics
	logger     *slog.Logger
}

func NewService(
	store Store,
	trackers TrackerStore,
	tasks TaskLoader,
	statuses TaskStatusUpdater,
	categories CategoryResolver,
	devices DeviceVerifier,
	images ImageStore,
	auditor *audit.Recorder,
	metrics *taskmetrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		trackers:   trackers,
		tasks:      tasks,
		statuses:   statuses,
		categories: categories,
		devices:    devices,
		images:     images,
		auditor:    auditor,
		metrics:    metrics,
		logger:     logger,
	}
}

// Submit records one checkpoint event for a task. The event survives an
// out-of-window timestamp (the task is flagged instead), but never survives a
// duplicate type, a locked task, or a foreign courier.
func (s *Service) Submit(ctx context.Context, taskID id.TaskID, eventType TaskEventType, geo Geo, image []byte) (*TaskEvent, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveSubmit(start)
	}

	if len(image) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing image")
	}

	actorID := requestcontext.ActorID(ctx)
	if requestcontext.ActorRole(ctx).CanCarry() {
		if err := s.devices.Verify(ctx, actorID, requestcontext.DeviceFingerprint(ctx)); err != nil {
			s.reject("device_mismatch")
			return nil, err
		}
	}

	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.AssigneeID != actorID {
		s.reject("not_assigned")
		s.audit(ctx, audit.ActionEventUploadDeniedNotAssigned, taskID, string(eventType))
		return nil, dErrors.New(dErrors.CodeForbidden, "task is assigned to another courier")
	}

	if t.IsLocked() {
		s.reject("task_locked")
		s.audit(ctx, audit.ActionEventRejectedTaskLocked, taskID, string(eventType))
		return nil, dErrors.New(dErrors.CodeStateConflict, "task already completed")
	}

	if _, err := s.store.FindByTaskAndType(ctx, taskID, eventType); err == nil {
		return nil, s.rejectDuplicate(ctx, taskID, eventType)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing event")
	}

	now := requestcontext.Now(ctx)
	digest := sha256.Sum256(image)

	category, err := s.categories.CategoryFor(ctx, now)
	if err != nil {
		return nil, err
	}
	window := timewindow.Check(eventType.Checkpoint(), category, now)
	if !window.Allowed {
		if err := s.statuses.UpdateStatus(ctx, taskID, task.StatusSuspicious); err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "out-of-window event, task flagged",
			"task_id", taskID.String(),
			"event_type", string(eventType),
			"window", window.Message,
		)
	}

	ev := &TaskEvent{
		ID:         id.NewEventID(),
		TaskID:     taskID,
		Type:       eventType,
		ImageHash:  hex.EncodeToString(digest[:]),
		Geo:        geo,
		ServerTime: now,
		CreatedAt:  now,
	}

	// Write-then-record: a crash here leaves an orphaned file, never a
	// database row pointing at a file that does not exist.
	ref, err := s.images.Save(ctx, ev.ID.String()+".jpg", image)
	if err != nil {
		return nil, err
	}
	ev.ImageRef = ref

	if err := s.store.CreateIfAbsent(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.rejectDuplicate(ctx, taskID, eventType)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist event")
	}

	if window.Allowed {
		if next, ok := nextStatus(eventType, t.Status); ok {
			if err := s.statuses.UpdateStatus(ctx, taskID, next); err != nil {
				return nil, err
			}
		}
	}

	if eventType.ClosesTransferPair() {
		if err := s.checkTravelTime(ctx, t, now); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, audit.ActionEventUploaded, taskID, fmt.Sprintf("%s hash=%s", eventType, ev.ImageHash))
	if s.metrics != nil {
		s.metrics.IncrementEventSubmitted()
	}
	return ev, nil
}

// nextStatus derives the transition an in-window event causes.
func nextStatus(eventType TaskEventType, current task.Status) (task.Status, bool) {
	switch {
	case eventType.StartsCustody() && current == task.StatusPending:
		return task.StatusInProgress, true
	case eventType.CompletesCustody():
		return task.StatusCompleted, true
	}
	return "", false
}

// AllowedEventTypes returns the event types a task still accepts, in sequence
// order. Double-shift tasks in their afternoon shift skip the morning-only
// types.
func (s *Service) AllowedEventTypes(ctx context.Context, taskID id.TaskID) ([]TaskEventType, error) {
	t, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.IsLocked() {
		return []TaskEventType{}, nil
	}

	recorded, err := s.store.ListByTask(ctx, taskID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	seen := make(map[TaskEventType]bool, len(recorded))
	for _, ev := range recorded {
		seen[ev.Type] = true
	}

	sequence := taskEventSequence
	if t.DoubleShift && requestcontext.Now(ctx).Hour() >= 12 {
		sequence = afternoonSequence
	}

	allowed := make([]TaskEventType, 0, len(sequence))
	for _, et := range sequence {
		if !seen[et] {
			allowed = append(allowed, et)
		}
	}
	return allowed, nil
}

// SubmitTracker records one exam-tracker event. Dedupe runs per
// (user, school, kind, shift, date) instead of per task.
func (s *Service) SubmitTracker(ctx context.Context, schoolID id.CenterID, eventType TrackerEventType, geo Geo, image []byte) (*TrackerEvent, error) {
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveSubmit(start)
	}

	if len(image) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing image")
	}

	actorID := requestcontext.ActorID(ctx)
	if requestcontext.ActorRole(ctx).CanCarry() {
		if err := s.devices.Verify(ctx, actorID, requestcontext.DeviceFingerprint(ctx)); err != nil {
			s.reject("device_mismatch")
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	digest := sha256.Sum256(image)

	category, err := s.categories.CategoryFor(ctx, now)
	if err != nil {
		return nil, err
	}
	window := timewindow.Check(eventType.Kind.Checkpoint(), category, now)
	if !window.Allowed {
		s.logger.WarnContext(ctx, "out-of-window tracker event recorded",
			"school_id", schoolID.String(),
			"event_kind", string(eventType.Kind),
			"window", window.Message,
		)
	}

	ev := &TrackerEvent{
		ID:         id.NewEventID(),
		UserID:     actorID,
		SchoolID:   schoolID,
		Kind:       eventType.Kind,
		Shift:      eventType.Shift,
		Date:       schedule.DateOnly(now),
		ImageHash:  hex.EncodeToString(digest[:]),
		Geo:        geo,
		ServerTime: now,
		CreatedAt:  now,
	}

	ref, err := s.images.Save(ctx, ev.ID.String()+".jpg", image)
	if err != nil {
		return nil, err
	}
	ev.ImageRef = ref

	if err := s.trackers.CreateIfAbsent(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.reject("duplicate")
			s.auditEntity(ctx, audit.ActionEventRejectedDuplicate, "tracker_event", schoolID.String(), string(eventType.Kind))
			return nil, dErrors.New(dErrors.CodeConflict, "event of this type already recorded today")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist tracker event")
	}

	s.auditEntity(ctx, audit.ActionEventUploaded, "tracker_event", ev.ID.String(), fmt.Sprintf("%s hash=%s", eventType.Kind, ev.ImageHash))
	if s.metrics != nil {
		s.metrics.IncrementEventSubmitted()
	}
	return ev, nil
}

// AllowedTrackerKinds returns the tracker kinds the actor has not yet
// recorded today at the given school, in sequence order.
func (s *Service) AllowedTrackerKinds(ctx context.Context, schoolID id.CenterID) ([]TrackerKind, error) {
	recorded, err := s.trackers.ListByUserAndDate(ctx, requestcontext.ActorID(ctx), schedule.DateOnly(requestcontext.Now(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tracker events")
	}
	seen := make(map[TrackerKind]bool, len(recorded))
	for _, ev := range recorded {
		if ev.SchoolID == schoolID {
			seen[ev.Kind] = true
		}
	}

	allowed := make([]TrackerKind, 0, len(trackerSequence))
	for _, k := range trackerSequence {
		if !seen[k] {
			allowed = append(allowed, k)
		}
	}
	return allowed, nil
}

// TrackerEventsToday lists the actor's tracker events for the current date.
func (s *Service) TrackerEventsToday(ctx context.Context) ([]TrackerEvent, error) {
	events, err := s.trackers.ListByUserAndDate(ctx, requestcontext.ActorID(ctx), schedule.DateOnly(requestcontext.Now(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tracker events")
	}
	return events, nil
}

// ListByTask returns a task's recorded events in submission order.
func (s *Service) ListByTask(ctx context.Context, taskID id.TaskID) ([]TaskEvent, error) {
	events, err := s.store.ListByTask(ctx, taskID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) rejectDuplicate(ctx context.Context, taskID id.TaskID, eventType TaskEventType) error {
	s.reject("duplicate")
	s.audit(ctx, audit.ActionEventRejectedDuplicate, taskID, string(eventType))
	return dErrors.New(dErrors.CodeConflict, "event of this type already recorded for task")
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementEventRejected(reason)
	}
}

func (s *Service) audit(ctx context.Context, action audit.Action, taskID id.TaskID, detail string) {
	s.auditEntity(ctx, action, "task", taskID.String(), detail)
}

func (s *Service) auditEntity(ctx context.Context, action audit.Action, entityType, entityID, detail string) {
	if err := s.auditor.Record(ctx, action, entityType, entityID, detail); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed", "action", string(action), "error", err)
	}
}
