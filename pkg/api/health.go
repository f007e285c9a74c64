package api

import (
	"net/http"

	"github.com/cuemby/cityfix/pkg/metrics"
	"github.com/go-chi/chi/v5"
)

// Pinger checks that storage is reachable
type Pinger interface {
	Ping() error
}

// mountHealth registers the probe and metrics endpoints. They sit outside
// the rate limiter and the API prefix.
func (s *Server) mountHealth(r chi.Router) {
	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", s.readyHandler)
	r.Get("/live", metrics.LivenessHandler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
}

// readyHandler refreshes the storage component before answering so a
// closed or broken store fails readiness without waiting for the collector
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			metrics.UpdateComponent(metrics.ComponentStorage, false, err.Error())
		} else {
			metrics.UpdateComponent(metrics.ComponentStorage, true, "")
		}
	}
	metrics.ReadyHandler()(w, r)
}
