package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/furfield/orgportal/internal/api/handlers"
	"github.com/furfield/orgportal/internal/api/middleware"
	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/metrics"
)

// NewRouter creates the HTTP router with all API routes. The request gate
// is mounted outside this router (see pkg/server) so it also covers page
// paths that no route matches.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.OrganizationScope)
	r.Use(middleware.Telemetry)
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AuthURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/healthcheck", healthHandler)
	r.Get("/version", versionHandler(cfg))
	r.Handle("/metrics", metrics.Handler())

	// Auth endpoints get an extra per-client rate limit; everything else
	// relies on the gate and upstream limits.
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.AuthRate, cfg.RateLimit.AuthBurst)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", h.Me)
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Post("/signin", h.SignIn)
				r.Post("/signup", h.SignUp)
			})
			r.Post("/logout", h.Logout)
			r.Get("/logout", h.Logout)
		})

		r.Get("/organizations", h.ListOrganizations)
		r.Get("/entities", h.ListEntities)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "furfield-orgportal",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "furfield-orgportal",
		})
	}
}
