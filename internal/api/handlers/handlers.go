// Package handlers implements the HTTP handlers for the FURFIELD org
// portal API. All handlers depend on the Store interface, the claims
// resolver, and the auth service client; none of them touch the request
// gate, which runs upstream for page routes only. API routes check their
// own credential, verifying the cookie token's signature before trusting
// any embedded claims.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/api/middleware"
	"github.com/furfield/orgportal/internal/claims"
	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/idp"
	"github.com/furfield/orgportal/internal/store"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store    store.Store
	Resolver *claims.Resolver
	IDP      *idp.Client

	jwtSecret string
	cookies   config.CookieConfig
}

// New creates a Handlers instance with all dependencies.
func New(s store.Store, res *claims.Resolver, authClient *idp.Client, jwtSecret string, cookies config.CookieConfig) *Handlers {
	return &Handlers{
		Store:     s,
		Resolver:  res,
		IDP:       authClient,
		jwtSecret: jwtSecret,
		cookies:   cookies,
	}
}

// sessionClaims extracts and verifies the cookie credential. The nil, false
// return means the 401 has already been written.
func (h *Handlers) sessionClaims(w http.ResponseWriter, r *http.Request) (*claims.TokenClaims, bool) {
	c, err := r.Cookie(h.cookies.TokenName)
	if err != nil || c.Value == "" {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	tc, err := claims.Verify(c.Value, h.jwtSecret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return tc, true
}

// ── Organization Handlers ───────────────────────────────────

// ListOrganizations returns the organizations owned by the caller's
// platform user.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}

	// A freshly signed-up user has no platform id yet; that is an empty
	// list, not an error.
	if tc.UserPlatformID == "" {
		respondJSON(w, http.StatusOK, envelope{
			Success: true,
			Data: map[string]any{
				"organizations": []store.Organization{},
				"message":       "No user platform ID found",
			},
		})
		return
	}

	orgs, err := h.Store.ListOrganizationsByOwner(r.Context(), tc.UserPlatformID)
	if err != nil {
		log.Error().Err(err).Str("user_platform_id", tc.UserPlatformID).Msg("Failed to list organizations")
		respondError(w, http.StatusInternalServerError, "Failed to fetch organizations")
		return
	}
	if orgs == nil {
		orgs = []store.Organization{}
	}

	respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"organizations": orgs,
			"total":         len(orgs),
		},
	})
}

// ── Entity Handlers ─────────────────────────────────────────

// ListEntities returns entities for the scoped organization, or for all of
// the caller's organizations when no scope is given.
func (h *Handlers) ListEntities(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}

	orgID := middleware.GetOrganizationScope(r.Context())

	var (
		entities []store.Entity
		err      error
	)
	switch {
	case orgID != "":
		entities, err = h.Store.ListEntitiesByOrganization(r.Context(), orgID)
	case tc.UserPlatformID != "":
		entities, err = h.Store.ListEntitiesForOwner(r.Context(), tc.UserPlatformID)
	}
	if err != nil {
		log.Error().Err(err).Str("organization", orgID).Msg("Failed to list entities")
		respondError(w, http.StatusInternalServerError, "Failed to fetch entities")
		return
	}
	if entities == nil {
		entities = []store.Entity{}
	}

	respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"entities":               entities,
			"total":                  len(entities),
			"organizationPlatformId": orgID,
		},
	})
}

// ── Response helpers ────────────────────────────────────────

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
