package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/event"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// maxImageBytes bounds the evidence photo upload (8 MiB).
const maxImageBytes = 8 << 20

// Handler exposes checkpoint event submission and the allowed-types query.
type Handler struct {
	events *event.Service
	logger *slog.Logger
}

func New(events *event.Service, logger *slog.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

// Register mounts the event routes under the authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tasks/{taskID}/events", h.handleSubmit)
	r.Get("/tasks/{taskID}/events", h.handleList)
	r.Get("/tasks/{taskID}/allowed-events", h.handleAllowedTypes)
	r.Post("/tracker/{schoolID}/events", h.handleSubmitTracker)
	r.Get("/tracker/{schoolID}/allowed-events", h.handleAllowedTrackerKinds)
	r.Get("/tracker/events", h.handleTrackerToday)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid task id"))
		return
	}

	eventType, geo, image, err := parseSubmission(r, func(s string) (string, error) {
		t, err := event.ParseTaskEventType(s)
		return string(t), err
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ev, err := h.events.Submit(r.Context(), taskID, event.TaskEventType(eventType), geo, image)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(r.Context(), "event submission failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"task_id", taskID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid task id"))
		return
	}

	events, err := h.events.ListByTask(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleAllowedTypes(w http.ResponseWriter, r *http.Request) {
	taskID, err := id.ParseTaskID(chi.URLParam(r, "taskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid task id"))
		return
	}

	allowed, err := h.events.AllowedEventTypes(r.Context(), taskID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"allowed_event_types": allowed})
}

func (h *Handler) handleSubmitTracker(w http.ResponseWriter, r *http.Request) {
	schoolID, err := id.ParseCenterID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	kind, geo, image, err := parseSubmission(r, func(s string) (string, error) {
		k, err := event.ParseTrackerKind(s)
		return string(k), err
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	shift := event.ShiftNone
	if raw := r.FormValue("shift"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < int(event.ShiftNone) || n > int(event.ShiftAfternoon) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid shift"))
			return
		}
		shift = event.Shift(n)
	}

	ev, err := h.events.SubmitTracker(r.Context(), schoolID, event.TrackerEventType{Kind: event.TrackerKind(kind), Shift: shift}, geo, image)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(r.Context(), "tracker event submission failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"school_id", schoolID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleAllowedTrackerKinds(w http.ResponseWriter, r *http.Request) {
	schoolID, err := id.ParseCenterID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	allowed, err := h.events.AllowedTrackerKinds(r.Context(), schoolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"allowed_event_types": allowed})
}

func (h *Handler) handleTrackerToday(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.TrackerEventsToday(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// parseSubmission reads the common multipart fields of a checkpoint
// submission: eventType, latitude, longitude, and the image part.
func parseSubmission(r *http.Request, parseType func(string) (string, error)) (string, event.Geo, []byte, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return "", event.Geo{}, nil, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body")
	}

	eventType, err := parseType(r.FormValue("eventType"))
	if err != nil {
		return "", event.Geo{}, nil, err
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		return "", event.Geo{}, nil, dErrors.New(dErrors.CodeBadRequest, "invalid latitude")
	}
	lng, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		return "", event.Geo{}, nil, dErrors.New(dErrors.CodeBadRequest, "invalid longitude")
	}
	geo, err := event.ParseGeo(lat, lng)
	if err != nil {
		return "", event.Geo{}, nil, err
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return "", event.Geo{}, nil, dErrors.New(dErrors.CodeBadRequest, "missing image")
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return "", event.Geo{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read image")
	}
	if len(image) == 0 {
		return "", event.Geo{}, nil, dErrors.New(dErrors.CodeBadRequest, "missing image")
	}

	return eventType, geo, image, nil
}
