// Package http assembles the public router: middleware chain, health and
// metrics endpoints, and the per-module route registrations.
package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditHandler "custodia/internal/audit/handler"
	"custodia/internal/device"
	deviceHandler "custodia/internal/device/handler"
	"custodia/internal/event"
	eventHandler "custodia/internal/event/handler"
	"custodia/internal/platform/middleware"
	platformredis "custodia/internal/platform/redis"
	"custodia/internal/schedule"
	scheduleHandler "custodia/internal/schedule/handler"
	"custodia/internal/task"
	taskHandler "custodia/internal/task/handler"
	"custodia/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Tasks     *task.Service
	Events    *event.Service
	Schedules *schedule.Service
	Guard     *device.Guard
	Audit     *auditHandler.Handler
	Validator middleware.TokenValidator
	DB        *sql.DB
	Redis     *platformredis.Client
	Logger    *slog.Logger
}

// New builds the router. All domain routes sit behind authentication; the
// admin middleware additionally gates the administrative surface.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Metadata)

	r.Get("/healthz", healthHandler(deps.DB, deps.Redis))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		r.Use(middleware.Device(device.NewFingerprinter()))

		taskHandler.New(deps.Tasks, deps.Logger).Register(r, middleware.RequireAdmin)
		eventHandler.New(deps.Events, deps.Logger).Register(r)
		scheduleHandler.New(deps.Schedules, deps.Logger).Register(r, middleware.RequireAdmin)
		deviceHandler.New(deps.Guard, deps.Logger).Register(r, middleware.RequireAdmin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			deps.Audit.Register(r)
		})
	})

	return r
}

func healthHandler(db *sql.DB, rdb *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status["status"] = "degraded"
				status["postgres"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
			}
		}

		httputil.WriteJSON(w, code, status)
	}
}
