package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Handler exposes the audit trail to reviewers. Read-only; appending happens
// only through the Recorder.
type Handler struct {
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Register mounts the audit query routes. Callers wrap them with the admin
// middleware; nothing here is courier-facing.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
	r.Get("/audit/entity/{entityType}/{entityID}", h.handleListByEntity)
	r.Get("/audit/actor/{actorID}", h.handleListByActor)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.recorder.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit list failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{Entries: entries, Count: len(entries)})
}

func (h *Handler) handleListByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	entries, err := h.recorder.ListByEntity(r.Context(), entityType, entityID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit entity query failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{Entries: entries, Count: len(entries)})
}

func (h *Handler) handleListByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := id.ParseUserID(chi.URLParam(r, "actorID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid actor id"))
		return
	}

	entries, err := h.recorder.ListByActor(r.Context(), actorID.String())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit actor query failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit query failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{Entries: entries, Count: len(entries)})
}

type listResponse struct {
	Entries []audit.Entry `json:"entries"`
	Count   int           `json:"count"`
}
