package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/schedule"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Handler exposes schedule queries and admin schedule creation.
type Handler struct {
	schedules *schedule.Service
	logger    *slog.Logger
}

func New(schedules *schedule.Service, logger *slog.Logger) *Handler {
	return &Handler{schedules: schedules, logger: logger}
}

// Register mounts the schedule routes. Creation is wrapped with the admin
// middleware by the caller; queries are available to any authenticated actor.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/schedules", h.handleList)
	r.Get("/schedules/window", h.handleWindow)
	r.Get("/schedules/exam-day", h.handleExamDay)
	r.With(admin).Post("/schedules", h.handleCreate)
}

type createRequest struct {
	CenterID id.CenterID `json:"center_id"`
	Date     string      `json:"date"`
	Class    string      `json:"class"`
	Subject  string      `json:"subject"`
	Category string      `json:"category"`
	Start    time.Time   `json:"start"`
	End      time.Time   `json:"end"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	category, err := timewindow.ParseCategory(req.Category)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "category must be CORE or VOCATIONAL"))
		return
	}

	entry, err := schedule.NewEntry(req.CenterID, date, req.Class, req.Subject, category, req.Start, req.End, requestcontext.Now(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.schedules.Create(r.Context(), entry)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(r.Context(), "schedule creation failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		dateParam = requestcontext.Now(r.Context()).Format(time.DateOnly)
	}
	date, err := time.Parse(time.DateOnly, dateParam)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	entries, err := h.schedules.ScheduleFor(r.Context(), date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schedules": entries})
}

func (h *Handler) handleWindow(w http.ResponseWriter, r *http.Request) {
	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		dateParam = requestcontext.Now(r.Context()).Format(time.DateOnly)
	}
	date, err := time.Parse(time.DateOnly, dateParam)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD"))
		return
	}

	checkpoint := timewindow.Checkpoint(r.URL.Query().Get("eventType"))
	if checkpoint == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "eventType is required"))
		return
	}

	result, err := h.schedules.CheckWindow(r.Context(), date, checkpoint, requestcontext.Now(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExamDay(w http.ResponseWriter, r *http.Request) {
	centerID, err := id.ParseCenterID(r.URL.Query().Get("centerId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid center id"))
		return
	}

	status, err := h.schedules.ExamDayStatus(r.Context(), centerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, status)
}
