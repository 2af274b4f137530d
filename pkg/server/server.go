// Package server provides the public entry point for initializing the
// FURFIELD org portal server: configuration, telemetry, store selection,
// the session verifier strategy, the request gate, and the API router are
// all composed here.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":6700", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/api"
	"github.com/furfield/orgportal/internal/api/handlers"
	"github.com/furfield/orgportal/internal/claims"
	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/database"
	"github.com/furfield/orgportal/internal/gate"
	"github.com/furfield/orgportal/internal/idp"
	"github.com/furfield/orgportal/internal/store"
	"github.com/furfield/orgportal/internal/telemetry"
)

// Server holds the initialized org portal.
type Server struct {
	// Handler is the full HTTP handler: the request gate wrapping the
	// API router.
	Handler http.Handler

	// Store is the data store (PostgreSQL when DATABASE_URL is set,
	// in-memory otherwise).
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush
	// telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the org portal with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authClient := idp.New(cfg.AuthURL, cfg.Gate.VerifyTimeout)
	verifier := buildVerifier(ctx, cfg, authClient)
	g := gate.New(verifier, gateOptions(cfg))

	resolver := claims.NewResolver(dataStore)
	h := handlers.New(dataStore, resolver, authClient, cfg.JWTSecret, cfg.Cookies)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      g.Middleware(router),
		Store:        dataStore,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.URL == "" {
		mem := store.NewMemoryStore()
		if err := mem.SeedDemoData(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to seed demo data")
		}
		log.Info().Msg("In-memory store initialized (no DATABASE_URL)")
		return mem, nil
	}

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	pg, err := store.OpenPostgres(cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info().Msg("PostgreSQL store initialized")
	return pg, nil
}

// gateOptions picks the login redirect shape for the configured strategy.
// Introspection sends unauthenticated visitors to the external auth
// service with the full request URL; the managed session strategy keeps
// login in-app and passes only the path.
func gateOptions(cfg *config.Config) gate.Options {
	opts := gate.Options{
		ExtraPublicPaths: cfg.Gate.PublicPaths,
		Cookies:          cfg.Cookies,
	}
	switch cfg.Gate.Strategy {
	case "session":
		opts.LoginURL = "/auth/login"
		opts.ReturnParam = "redirectTo"
	default:
		opts.LoginURL = cfg.AuthURL + "/login"
		opts.ReturnParam = "returnUrl"
		opts.ReturnFullURL = true
	}
	return opts
}

func buildVerifier(ctx context.Context, cfg *config.Config, authClient *idp.Client) gate.Verifier {
	switch cfg.Gate.Strategy {
	case "session":
		log.Info().Msg("Session verifier: managed session client")
		return gate.NewSessionClient(authClient, cfg.Cookies, cfg.Gate.RefreshSkew)
	default:
		cache := gate.NewCache(cfg.Gate.VerifyTTL, cfg.Gate.CacheMaxEntries)
		cache.StartJanitor(ctx, cfg.Gate.VerifyTTL*2)
		log.Info().
			Dur("ttl", cfg.Gate.VerifyTTL).
			Int("max_entries", cfg.Gate.CacheMaxEntries).
			Msg("Session verifier: token introspection with verdict cache")
		return gate.NewIntrospector(cfg.AuthURL+"/api/auth/verify", cfg.Gate.VerifyTimeout, cache)
	}
}
