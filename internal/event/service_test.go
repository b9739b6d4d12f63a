package event_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	auditMemory "custodia/internal/audit/store/memory"
	"custodia/internal/device"
	deviceMemory "custodia/internal/device/store/memory"
	"custodia/internal/event"
	eventMemory "custodia/internal/event/store/memory"
	"custodia/internal/task"
	taskMemory "custodia/internal/task/store/memory"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

// =============================================================================
// Event Ledger Test Suite
// =============================================================================
// The submission pipeline spans ownership checks, dedupe, time windows, status
// transitions, and red-flag escalation. These paths are exercised here against
// in-memory stores; the storage-level race guarantees have their own
// integration tests.

type fakeImageStore struct {
	saved map[string][]byte
}

func (f *fakeImageStore) Save(_ context.Context, name string, data []byte) (string, error) {
	f.saved[name] = data
	return "file://" + name, nil
}

type fixedCategory struct {
	category timewindow.Category
}

func (f fixedCategory) CategoryFor(context.Context, time.Time) (timewindow.Category, error) {
	return f.category, nil
}

type EventServiceSuite struct {
	suite.Suite
	auditStore *auditMemory.InMemoryStore
	taskStore  *taskMemory.InMemoryStore
	directory  *taskMemory.InMemoryDirectory
	eventStore *eventMemory.InMemoryStore
	images     *fakeImageStore
	guard      *device.Guard
	tasks      *task.Service
	service    *event.Service
	courierID  id.UserID
}

func TestEventServiceSuite(t *testing.T) {
	suite.Run(t, new(EventServiceSuite))
}

func (s *EventServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = auditMemory.NewInMemoryStore()
	auditor := audit.NewRecorder(s.auditStore, logger)

	s.taskStore = taskMemory.NewInMemoryStore()
	s.directory = taskMemory.NewInMemoryDirectory()
	s.tasks = task.NewService(s.taskStore, s.directory, auditor, nil, nil, logger, 30*time.Minute)

	s.eventStore = eventMemory.NewInMemoryStore()
	s.images = &fakeImageStore{saved: make(map[string][]byte)}
	s.guard = device.NewGuard(deviceMemory.NewInMemoryStore(), auditor, logger, false)

	s.service = event.NewService(
		s.eventStore,
		eventMemory.NewInMemoryTrackerStore(),
		s.tasks,
		s.tasks,
		fixedCategory{category: timewindow.CategoryCore},
		s.guard,
		s.images,
		auditor,
		nil,
		logger,
	)

	s.courierID = id.NewUserID()
	s.directory.Save(task.Assignee{ID: s.courierID, Role: id.RoleCourier, Active: true})
}

// courierCtx builds a context for the assigned courier with a pinned clock
// and a device fingerprint.
func (s *EventServiceSuite) courierCtx(now time.Time) context.Context {
	ctx := testutil.ActorContext(s.courierID, id.RoleCourier, now)
	return requestcontext.WithDeviceFingerprint(ctx, "fp-1")
}

// at returns today's date at the given clock time, UTC.
func at(hour, minute int) time.Time {
	return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func (s *EventServiceSuite) createTask(code string, doubleShift bool) *task.Task {
	adminCtx := testutil.ActorContext(id.NewUserID(), id.RoleAdmin, at(8, 0))
	t, err := s.tasks.Create(adminCtx, task.Spec{
		Code:           code,
		Source:         "District Treasury",
		Destination:    "Center 014",
		AssigneeID:     s.courierID,
		ScheduledStart: at(9, 0),
		ScheduledEnd:   at(13, 0),
		DoubleShift:    doubleShift,
	})
	s.Require().NoError(err)
	return t
}

func (s *EventServiceSuite) taskStatus(taskID id.TaskID) task.Status {
	t, err := s.tasks.FindByID(context.Background(), taskID)
	s.Require().NoError(err)
	return t.Status
}

func (s *EventServiceSuite) auditActions(taskID id.TaskID) []audit.Action {
	entries, err := s.auditStore.ListByEntity(context.Background(), "task", taskID.String())
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

var image = []byte("jpeg bytes")

// =============================================================================
// Full Lifecycle
// =============================================================================

func (s *EventServiceSuite) TestFullLifecycle() {
	t := s.createTask("SP2025-000123", false)

	s.Run("in-window pickup starts custody", func() {
		ev, err := s.service.Submit(s.courierCtx(at(9, 10)), t.ID, event.TaskEventPickup, event.Geo{Latitude: 9.05, Longitude: 7.49}, image)
		s.Require().NoError(err)
		s.Equal(task.StatusInProgress, s.taskStatus(t.ID))

		digest := sha256.Sum256(image)
		s.Equal(hex.EncodeToString(digest[:]), ev.ImageHash)
		s.NotEmpty(ev.ImageRef)
		s.Contains(s.images.saved, ev.ID.String()+".jpg")
	})

	s.Run("duplicate pickup is a conflict", func() {
		_, err := s.service.Submit(s.courierCtx(at(9, 20)), t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(s.auditActions(t.ID), audit.ActionEventRejectedDuplicate)
	})

	s.Run("in-window final completes the task", func() {
		_, err := s.service.Submit(s.courierCtx(at(12, 50)), t.ID, event.TaskEventFinal, event.Geo{}, image)
		s.Require().NoError(err)
		s.Equal(task.StatusCompleted, s.taskStatus(t.ID))
	})

	s.Run("completed task rejects further events", func() {
		_, err := s.service.Submit(s.courierCtx(at(12, 55)), t.ID, event.TaskEventTransit, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
		s.Contains(s.auditActions(t.ID), audit.ActionEventRejectedTaskLocked)

		events, err := s.eventStore.ListByTask(context.Background(), t.ID)
		s.Require().NoError(err)
		s.Len(events, 2)
	})
}

// =============================================================================
// Authorization and Validation
// =============================================================================

func (s *EventServiceSuite) TestSubmitRejections() {
	t := s.createTask("SP2025-000200", false)

	s.Run("foreign courier is forbidden and audited", func() {
		stranger := id.NewUserID()
		s.directory.Save(task.Assignee{ID: stranger, Role: id.RoleCourier, Active: true})
		ctx := requestcontext.WithDeviceFingerprint(testutil.ActorContext(stranger, id.RoleCourier, at(9, 10)), "fp-2")

		_, err := s.service.Submit(ctx, t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(s.auditActions(t.ID), audit.ActionEventUploadDeniedNotAssigned)
	})

	s.Run("missing image is rejected before any side effect", func() {
		_, err := s.service.Submit(s.courierCtx(at(9, 10)), t.ID, event.TaskEventPickup, event.Geo{}, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Empty(s.images.saved)
	})

	s.Run("unknown task is not found", func() {
		_, err := s.service.Submit(s.courierCtx(at(9, 10)), id.NewTaskID(), event.TaskEventPickup, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("device mismatch is forbidden", func() {
		// A successful submission binds fp-1 first.
		_, err := s.service.Submit(s.courierCtx(at(9, 10)), t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().NoError(err)

		ctx := requestcontext.WithDeviceFingerprint(testutil.ActorContext(s.courierID, id.RoleCourier, at(10, 0)), "fp-other")
		_, err = s.service.Submit(ctx, t.ID, event.TaskEventTransit, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Time Windows
// =============================================================================

func (s *EventServiceSuite) TestOutOfWindowForcesSuspicious() {
	t := s.createTask("SP2025-000300", false)

	// 05:00 is before any CORE pickup window.
	ev, err := s.service.Submit(s.courierCtx(at(5, 0)), t.ID, event.TaskEventPickup, event.Geo{}, image)
	s.Require().NoError(err)
	s.NotNil(ev)

	s.Equal(task.StatusSuspicious, s.taskStatus(t.ID))
	s.Contains(s.auditActions(t.ID), audit.ActionTaskFlaggedSuspicious)

	// The event itself is still on record for later review.
	events, err := s.eventStore.ListByTask(context.Background(), t.ID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *EventServiceSuite) TestSuspiciousDoesNotBlockSubmission() {
	t := s.createTask("SP2025-000301", false)

	_, err := s.service.Submit(s.courierCtx(at(5, 0)), t.ID, event.TaskEventPickup, event.Geo{}, image)
	s.Require().NoError(err)
	s.Equal(task.StatusSuspicious, s.taskStatus(t.ID))

	// An in-window final still lands and completes the task.
	_, err = s.service.Submit(s.courierCtx(at(12, 30)), t.ID, event.TaskEventFinal, event.Geo{}, image)
	s.Require().NoError(err)
	s.Equal(task.StatusCompleted, s.taskStatus(t.ID))
}

// =============================================================================
// Red-Flag Detector
// =============================================================================

func (s *EventServiceSuite) TestRedFlagTravelTime() {
	s.Run("arrival beyond 1.5x expected travel escalates", func() {
		t := s.createTask("SP2025-000400", false)

		_, err := s.service.Submit(s.courierCtx(at(9, 0)), t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().NoError(err)

		// Expected travel defaults to 30m; 48m elapsed is 1.6x.
		_, err = s.service.Submit(s.courierCtx(at(9, 48)), t.ID, event.TaskEventTransit, event.Geo{}, image)
		s.Require().NoError(err)

		s.Equal(task.StatusSuspicious, s.taskStatus(t.ID))
		s.Contains(s.auditActions(t.ID), audit.ActionRedFlagTravelTime)
	})

	s.Run("arrival within tolerance does not escalate", func() {
		t := s.createTask("SP2025-000401", false)

		_, err := s.service.Submit(s.courierCtx(at(9, 0)), t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().NoError(err)

		// 42m elapsed is 1.4x.
		_, err = s.service.Submit(s.courierCtx(at(9, 42)), t.ID, event.TaskEventTransit, event.Geo{}, image)
		s.Require().NoError(err)

		s.Equal(task.StatusInProgress, s.taskStatus(t.ID))
		s.NotContains(s.auditActions(t.ID), audit.ActionRedFlagTravelTime)
	})
}

// =============================================================================
// Allowed Event Types
// =============================================================================

func (s *EventServiceSuite) TestAllowedEventTypes() {
	s.Run("fresh task offers the full sequence", func() {
		t := s.createTask("SP2025-000500", false)
		allowed, err := s.service.AllowedEventTypes(s.courierCtx(at(9, 0)), t.ID)
		s.Require().NoError(err)
		s.Equal([]event.TaskEventType{event.TaskEventPickup, event.TaskEventTransit, event.TaskEventFinal}, allowed)
	})

	s.Run("recorded types drop out of the sequence", func() {
		t := s.createTask("SP2025-000501", false)
		_, err := s.service.Submit(s.courierCtx(at(9, 0)), t.ID, event.TaskEventPickup, event.Geo{}, image)
		s.Require().NoError(err)

		allowed, err := s.service.AllowedEventTypes(s.courierCtx(at(9, 30)), t.ID)
		s.Require().NoError(err)
		s.Equal([]event.TaskEventType{event.TaskEventTransit, event.TaskEventFinal}, allowed)
	})

	s.Run("double-shift task in the afternoon skips morning types", func() {
		t := s.createTask("SP2025-000502", true)
		allowed, err := s.service.AllowedEventTypes(s.courierCtx(at(13, 0)), t.ID)
		s.Require().NoError(err)
		s.Equal([]event.TaskEventType{event.TaskEventTransit, event.TaskEventFinal}, allowed)
	})

	s.Run("completed task offers nothing", func() {
		t := s.createTask("SP2025-000503", false)
		_, err := s.service.Submit(s.courierCtx(at(12, 30)), t.ID, event.TaskEventFinal, event.Geo{}, image)
		s.Require().NoError(err)

		allowed, err := s.service.AllowedEventTypes(s.courierCtx(at(12, 40)), t.ID)
		s.Require().NoError(err)
		s.Empty(allowed)
	})
}

// =============================================================================
// Tracker Events
// =============================================================================

func (s *EventServiceSuite) TestSubmitTracker() {
	schoolID := id.NewCenterID()
	eventType := event.TrackerEventType{Kind: event.TrackerOpening, Shift: event.ShiftMorning}

	s.Run("first submission lands", func() {
		ev, err := s.service.SubmitTracker(s.courierCtx(at(9, 0)), schoolID, eventType, event.Geo{}, image)
		s.Require().NoError(err)
		s.Equal(s.courierID, ev.UserID)
		s.Equal(at(0, 0), ev.Date)
	})

	s.Run("same kind, shift, and day is a duplicate", func() {
		_, err := s.service.SubmitTracker(s.courierCtx(at(10, 0)), schoolID, eventType, event.Geo{}, image)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("other shift on the same day is distinct", func() {
		afternoon := event.TrackerEventType{Kind: event.TrackerOpening, Shift: event.ShiftAfternoon}
		_, err := s.service.SubmitTracker(s.courierCtx(at(14, 0)), schoolID, afternoon, event.Geo{}, image)
		s.Require().NoError(err)

		events, err := s.service.TrackerEventsToday(s.courierCtx(at(15, 0)))
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("recorded kinds drop out of the allowed sequence", func() {
		allowed, err := s.service.AllowedTrackerKinds(s.courierCtx(at(15, 0)), schoolID)
		s.Require().NoError(err)
		s.NotContains(allowed, event.TrackerOpening)
		s.Contains(allowed, event.TrackerTreasuryArrival)
	})
}

func (s *EventServiceSuite) TestParseGeo() {
	_, err := event.ParseGeo(91, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	_, err = event.ParseGeo(0, -181)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	geo, err := event.ParseGeo(9.05, 7.49)
	s.NoError(err)
	s.Equal(9.05, geo.Latitude)
}
