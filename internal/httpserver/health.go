package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/cinebase/internal/health"
)

func (h *handler) healthRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.healthCheck)
	r.Get("/simple", h.simpleHealth)
	r.Get("/ready", h.readiness)
	r.Get("/live", h.liveness)
	return r
}

func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.health.Run(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (h *handler) simpleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    health.StatusHealthy,
		"timestamp": time.Now().UTC(),
		"version":   h.health.Version(),
	})
}

func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "message": "application is ready to serve requests"})
}

func (h *handler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive", "message": "application is alive"})
}
