package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	auditMemory "custodia/internal/audit/store/memory"
	"custodia/internal/device"
	deviceMemory "custodia/internal/device/store/memory"
	"custodia/internal/event"
	"custodia/internal/event/handler"
	eventMemory "custodia/internal/event/store/memory"
	"custodia/internal/task"
	taskMemory "custodia/internal/task/store/memory"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

type fakeImages struct{}

func (fakeImages) Save(_ context.Context, name string, _ []byte) (string, error) {
	return "file://" + name, nil
}

type coreOnly struct{}

func (coreOnly) CategoryFor(context.Context, time.Time) (timewindow.Category, error) {
	return timewindow.CategoryCore, nil
}

type EventHandlerSuite struct {
	suite.Suite
	router    chi.Router
	tasks     *task.Service
	courierID id.UserID
	taskID    id.TaskID
}

func TestEventHandlerSuite(t *testing.T) {
	suite.Run(t, new(EventHandlerSuite))
}

func (s *EventHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.NewRecorder(auditMemory.NewInMemoryStore(), logger)

	directory := taskMemory.NewInMemoryDirectory()
	s.courierID = id.NewUserID()
	directory.Save(task.Assignee{ID: s.courierID, Role: id.RoleCourier, Active: true})

	s.tasks = task.NewService(taskMemory.NewInMemoryStore(), directory, auditor, nil, nil, logger, 30*time.Minute)
	guard := device.NewGuard(deviceMemory.NewInMemoryStore(), auditor, logger, false)

	service := event.NewService(
		eventMemory.NewInMemoryStore(),
		eventMemory.NewInMemoryTrackerStore(),
		s.tasks, s.tasks, coreOnly{}, guard, fakeImages{},
		auditor, nil, logger,
	)

	s.router = chi.NewRouter()
	handler.New(service, logger).Register(s.router)

	start := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	created, err := s.tasks.Create(
		testutil.ActorContext(id.NewUserID(), id.RoleAdmin, start.Add(-time.Hour)),
		task.Spec{
			Code:           "SP2025-000123",
			Source:         "District Treasury",
			Destination:    "Center 014",
			AssigneeID:     s.courierID,
			ScheduledStart: start,
			ScheduledEnd:   start.Add(4 * time.Hour),
		},
	)
	s.Require().NoError(err)
	s.taskID = created.ID
}

// asCourier decorates a request with the assigned courier's identity, device
// fingerprint, and a pinned in-window clock.
func (s *EventHandlerSuite) asCourier(req *http.Request) *http.Request {
	req = testutil.WithActor(req, s.courierID, id.RoleCourier)
	req = testutil.WithFingerprint(req, "fp-1")
	return testutil.WithClock(req, time.Date(2026, time.March, 10, 9, 10, 0, 0, time.UTC))
}

func (s *EventHandlerSuite) TestSubmit() {
	s.Run("valid submission creates the event", func() {
		req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "pickup", "9.05", "7.49", []byte("jpeg")))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		ev := testutil.UnmarshalResponse[event.TaskEvent](s.T(), rr)
		s.Equal(event.TaskEventPickup, ev.Type)
		s.Len(ev.ImageHash, 64)

		t, err := s.tasks.FindByID(context.Background(), s.taskID)
		s.Require().NoError(err)
		s.Equal(task.StatusInProgress, t.Status)
	})

	s.Run("duplicate submission is a conflict", func() {
		req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "pickup", "9.05", "7.49", []byte("jpeg")))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	})

	s.Run("unknown event type is a bad request", func() {
		req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "teleport", "9.05", "7.49", []byte("jpeg")))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("out-of-range latitude is a bad request", func() {
		req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "transit", "95", "7.49", []byte("jpeg")))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("foreign courier is forbidden", func() {
		req := testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "transit", "9.05", "7.49", []byte("jpeg"))
		req = testutil.WithActor(req, id.NewUserID(), id.RoleCourier)
		req = testutil.WithFingerprint(req, "fp-2")
		req = testutil.WithClock(req, time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC))

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("invalid task id is a bad request", func() {
		req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/not-a-uuid/events", "pickup", "9.05", "7.49", []byte("jpeg")))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *EventHandlerSuite) TestAllowedEvents() {
	req := s.asCourier(testutil.NewRequest(s.T(), http.MethodGet, "/tasks/"+s.taskID.String()+"/allowed-events"))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[map[string][]event.TaskEventType](s.T(), rr)
	s.Equal([]event.TaskEventType{event.TaskEventPickup, event.TaskEventTransit, event.TaskEventFinal}, (*resp)["allowed_event_types"])
}

func (s *EventHandlerSuite) TestLockedTaskReturns400() {
	s.Require().NoError(s.tasks.UpdateStatus(
		requestcontext.WithTime(context.Background(), time.Date(2026, time.March, 10, 12, 50, 0, 0, time.UTC)),
		s.taskID, task.StatusCompleted,
	))

	req := s.asCourier(testutil.NewEventRequest(s.T(), "/tasks/"+s.taskID.String()+"/events", "final", "9.05", "7.49", []byte("jpeg")))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "state_conflict")
}
