package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-gather/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(auth.PermSpaceRead))
				r.Get("/space", s.handleGetSpace)
				r.Get("/cards", s.handleListCards)
				r.Get("/conditions", s.handleListConditions)
				r.Get("/conditions/{name}", s.handleEvaluateCondition)
				r.Get("/ws", s.handleWebSocket)
			})

			r.With(requirePermission(auth.PermSpaceOperate)).
				Post("/actions/{name}", s.handleRunAction)

			r.Group(func(r chi.Router) {
				r.Use(requirePermission(auth.PermSettingsManage))
				r.Get("/pairing", s.handleGetPairing)
				r.Post("/pairing/token", s.handleSaveToken)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handleUpdateSettings)
			})
		})
	})

	return r
}

// handleHealth returns the server health status. No auth required.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"gather":  s.bridge.Status().State,
	})
}
