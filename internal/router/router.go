// Package router sets up all HTTP routes and middleware chains for the
// annonce API. Routes are grouped by the authorization they require.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"masterannonce/internal/handlers"
	"masterannonce/internal/middleware"
)

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// Deps carries everything the routes are wired to. Metrics, Requests and
// Checks are optional.
type Deps struct {
	Checks       map[string]Check
	Verifier     middleware.TokenVerifier
	Auth         *handlers.Auth
	Annonces     *handlers.Annonces
	Categories   *handlers.Categories
	LoginLimiter *middleware.RateLimiter
	Metrics      http.Handler
	Requests     middleware.RequestObserver
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request. Recoverer sits inside
	// Trace and Logger so a recovered panic is traced and logged as a 500.
	r.Use(middleware.Trace)
	r.Use(middleware.Logger(d.Requests))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Authenticate(d.Verifier))

	r.Get("/health", healthHandler(d.Checks))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.With(d.LoginLimiter.Middleware).Post("/login", d.Auth.Login)
		r.Post("/refresh", d.Auth.Refresh)
		r.With(middleware.RequireAuth).Post("/logout", d.Auth.Logout)
	})

	r.Route("/api/annonces", func(r chi.Router) {
		r.Get("/", d.Annonces.List)
		r.With(middleware.RequireAdmin).Get("/activity", d.Annonces.Activity)
		r.Get("/{id}", d.Annonces.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", d.Annonces.Create)
			r.Put("/{id}", d.Annonces.Update)
			r.Patch("/{id}", d.Annonces.Patch)
			r.Patch("/{id}/publish", d.Annonces.Publish)
			r.Delete("/{id}", d.Annonces.Delete)
		})

		r.With(middleware.RequireAdmin).Patch("/{id}/archive", d.Annonces.Archive)
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", d.Categories.List)
		r.Get("/{id}", d.Categories.Get)
		r.With(middleware.RequireAdmin).Post("/", d.Categories.Create)
	})

	r.Get("/api/meta/annonces", handlers.AnnonceMeta)

	return r
}

// healthTimeout bounds each dependency check.
const healthTimeout = 2 * time.Second

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler runs every check and answers 200 when all pass, 503
// otherwise. Failures are reported per check by name.
func healthHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			body.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				body.Checks[name] = err.Error()
				body.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			body.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
