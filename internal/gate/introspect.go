package gate

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/metrics"
)

// Introspector verifies tokens against the auth service's verification
// endpoint, consulting the verdict cache first so a hot token costs at
// most one network call per TTL window.
type Introspector struct {
	verifyURL string
	cache     *Cache
	client    *http.Client
}

// NewIntrospector creates the introspection verifier. verifyURL is the
// auth service's verification endpoint; timeout bounds each outbound call.
func NewIntrospector(verifyURL string, timeout time.Duration, cache *Cache) *Introspector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Introspector{
		verifyURL: verifyURL,
		cache:     cache,
		client:    &http.Client{Timeout: timeout},
	}
}

func (v *Introspector) Name() string { return "introspect" }

// Verify checks the token with the cache, then the verification endpoint.
// Any network failure or non-2xx response means invalid; the verdict is
// cached with a fresh TTL either way.
func (v *Introspector) Verify(ctx context.Context, token string, _ *http.Request) (Verdict, error) {
	if token == "" {
		return Verdict{}, nil
	}

	if valid, ok := v.cache.Get(token); ok {
		return Verdict{Valid: valid}, nil
	}

	valid := v.introspect(ctx, token)
	v.cache.Put(token, valid)
	return Verdict{Valid: valid}, nil
}

func (v *Introspector) introspect(ctx context.Context, token string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, nil)
	if err != nil {
		metrics.TokenVerifications.WithLabelValues("error").Inc()
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		// Fail closed: an unreachable verification endpoint never
		// grants access.
		log.Info().Err(err).Msg("Token verification call failed")
		metrics.TokenVerifications.WithLabelValues("error").Inc()
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		metrics.TokenVerifications.WithLabelValues("invalid").Inc()
		return false
	}
	metrics.TokenVerifications.WithLabelValues("valid").Inc()
	return true
}
