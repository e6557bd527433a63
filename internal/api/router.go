package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/edgetrack-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleViewer))

			r.Route("/sensors", func(r chi.Router) {
				r.Get("/", s.handleListSensors)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSensor)
					r.Get("/history", s.handleSensorHistory)
					r.With(s.requireRole(auth.RoleOperator)).Post("/commands", s.handleSensorCommand)
				})
			})

			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"sensors":    len(s.sensors.Summary()),
		"ws_clients": s.hub.ClientCount(),
	})
}
