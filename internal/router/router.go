// Package router sets up all HTTP routes and middleware chains for the
// flowcms API. Routes are grouped into authenticated content operations
// and admin-only scheduler administration.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"flowcms/internal/handlers"
	"flowcms/internal/middleware"
	"flowcms/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, content *handlers.Content, sched *handlers.Scheduler, auth *handlers.Auth) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request. LoadSession runs
	// before Logger so the request log can name the actor.
	r.Use(middleware.Recoverer)
	r.Use(middleware.LoadSession(sessionStore))
	r.Use(middleware.Logger)

	// Health check — no auth.
	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", auth.Login)
		r.Post("/auth/logout", auth.Logout)

		// Content lifecycle — requires a session.
		r.Route("/content", func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/", content.List)
			r.Post("/", content.Create)
			r.Get("/scheduled", content.Scheduled)
			r.Get("/expiring", content.Expiring)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", content.Get)
				r.Put("/", content.Update)
				r.Post("/submit", content.Submit)
				r.Post("/approve", content.Approve)
				r.Post("/reject", content.Reject)
				r.Post("/request-changes", content.RequestChanges)
				r.Post("/archive", content.Archive)
				r.Post("/restore/{version}", content.Restore)
				r.Get("/history", content.History)
				r.Get("/versions", content.Versions)

				r.With(middleware.RequireAdmin).Delete("/", content.Delete)
			})
		})

		// Scheduler administration — admin only.
		r.Route("/admin/scheduler", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RequireAdmin)

			r.Post("/run", sched.Run)
			r.Get("/metrics", sched.Metrics)
			r.Delete("/metrics", sched.ResetMetrics)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
