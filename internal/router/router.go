// Package router sets up all HTTP routes and middleware chains for the
// blogdash admin. Everything except health and static assets lives under
// /admin, where each section is gated by the permission its menu entry
// needs.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogdash/internal/handlers"
	"blogdash/internal/middleware"
	"blogdash/internal/models"
	"blogdash/web"
)

// Options tunes the router for the deployment.
type Options struct {
	// Secure marks cookies Secure and enables HSTS.
	Secure bool
	// LoginLimiter throttles login attempts per client IP. Nil disables it.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessions middleware.SessionLoader, admin *handlers.Admin, auth *handlers.Auth, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.SecureHeaders(opts.Secure))
	r.Use(middleware.Logger)
	r.Use(middleware.LoadSession(sessions))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	static, _ := fs.Sub(web.StaticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.Secure))

		// Auth pages, accessible without a session.
		r.Group(func(r chi.Router) {
			if opts.LoginLimiter != nil {
				r.Use(opts.LoginLimiter.Middleware)
			}
			r.Get("/login", auth.LoginPage)
			r.Post("/login", auth.LoginSubmit)
		})
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.With(middleware.RequireRole(models.PermViewDashboard)).Get("/", admin.Dashboard)

			r.Route("/profile", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PermViewProfile))
				r.Get("/", admin.Profile)
				r.Post("/password", admin.ProfilePassword)
			})

			r.Route("/blogs", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PermWriteBlogs))
				r.Get("/", admin.BlogsList)
				r.Get("/new", admin.BlogNew)
				r.Post("/", admin.BlogCreate)
				r.Get("/{id}", admin.BlogView)
				r.Get("/{id}/edit", admin.BlogEdit)
				r.Put("/{id}", admin.BlogUpdate)
				r.Post("/{id}", admin.BlogUpdate)
				r.With(middleware.RequireRole(models.PermDeleteBlogs)).Delete("/{id}", admin.BlogDelete)
				r.With(middleware.RequireRole(models.PermDeleteBlogs)).Post("/{id}/delete", admin.BlogDelete)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PermManageCategories))
				r.Get("/", admin.CategoriesList)
				r.Get("/new", admin.CategoryNew)
				r.Post("/", admin.CategoryCreate)
				r.Get("/{id}/edit", admin.CategoryEdit)
				r.Put("/{id}", admin.CategoryUpdate)
				r.Post("/{id}", admin.CategoryUpdate)
				r.Delete("/{id}", admin.CategoryDelete)
				r.Post("/{id}/delete", admin.CategoryDelete)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PermManageTags))
				r.Get("/", admin.TagsList)
				r.Get("/new", admin.TagNew)
				r.Post("/", admin.TagCreate)
				r.Get("/{id}/edit", admin.TagEdit)
				r.Put("/{id}", admin.TagUpdate)
				r.Post("/{id}", admin.TagUpdate)
				r.Delete("/{id}", admin.TagDelete)
				r.Post("/{id}/delete", admin.TagDelete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.PermManageUsers))
				r.Get("/", admin.UsersList)
				r.Get("/new", admin.UserNew)
				r.Post("/", admin.UserCreate)
				r.Get("/{id}/edit", admin.UserEdit)
				r.Put("/{id}", admin.UserUpdate)
				r.Post("/{id}", admin.UserUpdate)
				r.Delete("/{id}", admin.UserDelete)
				r.Post("/{id}/delete", admin.UserDelete)
			})
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
