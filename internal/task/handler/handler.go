package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/task"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Handler exposes the custody task registry.
type Handler struct {
	tasks  *task.Service
	logger *slog.Logger
}

func New(tasks *task.Service, logger *slog.Logger) *Handler {
	return &Handler{tasks: tasks, logger: logger}
}

// Register mounts the task routes. Creation and reset are admin-only; the
// list route is ownership-filtered to the calling courier.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.With(admin).Post("/tasks", h.handleCreate)
	r.Get("/tasks", h.handleListMine)
	r.Get("/tasks/{taskID}", h.handleFind)
	r.With(admin).Post("/tasks/{taskID}/reset", h.handleReset)
}

type createRequest struct {
	Code        string    `json:"code"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	AssigneeID  id.UserID `json:"assignee_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TravelMins  int       `json:"expected_travel_minutes,omitempty"`
	DoubleShift bool      `json:"double_shift,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	spec := task.Spec{
		Code:           req.Code,
		Source:         req.Source,
		Destination:    req.Destination,
		AssigneeID:     req.AssigneeID,
		ScheduledStart: req.StartTime,
		ScheduledEnd:   req.EndTime,
		ExpectedTravel: time.Duration(req.TravelMins) * time.Minute,
		DoubleShift:    req.DoubleShift,
	}

	created, err := h.tasks.Create(r.Context(), spec)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(r.Context(), "task creation failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.FindForCourier(r.Context(), requestcontext.ActorID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *Handler) handleFind(w http.ResponseWriter, r *http.Request) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid task id"))
		return
	}

	t, err := h.tasks.FindByID(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Couriers only see their own tasks; administrators see all.
	if requestcontext.ActorRole(r.Context()) != id.RoleAdmin && t.AssigneeID != requestcontext.ActorID(r.Context()) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "task is assigned to another courier"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid task id"))
		return
	}

	t, err := h.tasks.ResetForTesting(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, t)
}
