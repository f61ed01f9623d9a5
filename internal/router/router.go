// Package router sets up all HTTP routes and middleware chains for the
// PromptUI API. It organizes routes into public and signed-in groups with
// appropriate middleware stacks.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"promptui/internal/handlers"
	"promptui/internal/middleware"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions middleware.SessionReader
	Users    middleware.UserFinder
	// LoginLimiter throttles login attempts per client. Optional.
	LoginLimiter middleware.Limiter
	CORSOrigins  []string

	Prompts    *handlers.Prompts
	Categories *handlers.Categories
	Admin      *handlers.Admin
	Auth       *handlers.Auth
	Health     *handlers.Health
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(d.CORSOrigins)))

	r.NotFound(jsonStatus(http.StatusNotFound, "not found"))
	r.MethodNotAllowed(jsonStatus(http.StatusMethodNotAllowed, "method not allowed"))

	// Health check, no session needed.
	r.Get("/health", d.Health.Check)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoadSession(d.Sessions, d.Users))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.LoginLimiter != nil {
					r.Use(middleware.RateLimit(d.LoginLimiter))
				}
				r.Post("/login", d.Auth.Login)
			})
			r.Post("/logout", d.Auth.Logout)
			r.With(middleware.RequireAuth).Get("/me", d.Auth.Me)
			r.With(middleware.RequireAuth).Post("/logout-all", d.Auth.LogoutAll)
		})

		// Reads and the anonymous publisher's endpoints work without a
		// session; the workflow decides what each caller may do.
		r.Route("/prompts", func(r chi.Router) {
			r.Get("/", d.Prompts.List)
			r.Post("/", d.Prompts.Create)
			r.Get("/{id}", d.Prompts.Get)
			r.Get("/{id}/versions", d.Prompts.Versions)
			r.Post("/{id}/publish", d.Prompts.Publish)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Patch("/{id}", d.Prompts.Update)
				r.Post("/{id}/submit-review", d.Prompts.SubmitReview)
				r.Post("/{id}/offline", d.Prompts.Offline)
				r.Post("/{id}/rollback/{version}", d.Prompts.Rollback)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Categories.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", d.Categories.Create)
				r.Patch("/{id}", d.Categories.Update)
				r.Delete("/{id}", d.Categories.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/logs", d.Admin.AuditLogs)
			r.Get("/review-queue", d.Admin.ReviewQueue)
		})
	})

	return r
}

// jsonStatus answers every request with a fixed JSON error.
func jsonStatus(status int, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	}
}
