package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/furfield/orgportal/internal/api/handlers"
	"github.com/furfield/orgportal/internal/claims"
	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/idp"
	"github.com/furfield/orgportal/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Version: "test",
		AuthURL: "http://auth.invalid",
		Cookies: config.CookieConfig{
			TokenName:   "furfield_token",
			RefreshName: "furfield_refresh_token",
			MaxAge:      7 * 24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{AuthRate: 60, AuthBurst: 10},
	}
	s := store.NewMemoryStore()
	h := handlers.New(s, claims.NewResolver(s), idp.New(cfg.AuthURL, time.Second), "secret", cfg.Cookies)
	return NewRouter(cfg, h)
}

func TestHealthcheck(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "healthy" {
		t.Errorf("body = %v", got)
	}
}

func TestVersion(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["version"] != "test" {
		t.Errorf("body = %v", got)
	}
}

func TestAPIRoutesRequireCredential(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/api/auth/me", "/api/organizations", "/api/entities"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
