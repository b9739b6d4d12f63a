package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/device"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
)

// Handler exposes the administrative device binding reset.
type Handler struct {
	guard  *device.Guard
	logger *slog.Logger
}

func New(guard *device.Guard, logger *slog.Logger) *Handler {
	return &Handler{guard: guard, logger: logger}
}

// Register mounts the admin device routes. The caller supplies the admin
// middleware so the reset can never be reached by a courier.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.With(admin).Post("/admin/devices/{userID}/reset", h.handleReset)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.guard.Reset(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}
