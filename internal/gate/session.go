package gate

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/claims"
	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/idp"
)

// SessionClient is the managed-session verifier: instead of introspecting
// a bearer token, it trusts the auth service's cookie session and silently
// refreshes it when the access token is expired or about to expire,
// handing the refreshed cookies back to the gate to set on the response.
type SessionClient struct {
	idp     *idp.Client
	cookies config.CookieConfig

	// refreshSkew is how close to expiry the access token may get before
	// a refresh is attempted.
	refreshSkew time.Duration

	now func() time.Time
}

// NewSessionClient creates the managed-session verifier.
func NewSessionClient(client *idp.Client, cookies config.CookieConfig, refreshSkew time.Duration) *SessionClient {
	if refreshSkew <= 0 {
		refreshSkew = time.Minute
	}
	return &SessionClient{
		idp:         client,
		cookies:     cookies,
		refreshSkew: refreshSkew,
		now:         time.Now,
	}
}

func (v *SessionClient) Name() string { return "session" }

// Verify inspects the session cookies directly; the token argument is
// ignored because the session library owns credential transport.
func (v *SessionClient) Verify(ctx context.Context, _ string, r *http.Request) (Verdict, error) {
	access := cookieValue(r, v.cookies.TokenName)
	refresh := cookieValue(r, v.cookies.RefreshName)

	if access == "" && refresh == "" {
		return Verdict{}, nil
	}

	if access != "" && !v.needsRefresh(access) {
		return Verdict{Valid: true}, nil
	}

	if refresh == "" {
		return Verdict{}, nil
	}

	sess, err := v.idp.Refresh(ctx, refresh)
	if err != nil || sess == nil {
		return Verdict{}, err
	}

	log.Debug().Str("user", sess.User.ID).Msg("Session refreshed")
	return Verdict{
		Valid:      true,
		SetCookies: SessionCookies(sess, v.cookies),
	}, nil
}

// needsRefresh decodes the access token's expiry only; validity is the
// auth service's concern, so an undecodable token is simply treated as
// stale and pushed through the refresh path.
func (v *SessionClient) needsRefresh(access string) bool {
	tc, err := claims.Decode(access)
	if err != nil {
		return true
	}
	return tc.ExpiresWithin(v.now(), v.refreshSkew)
}

// SessionCookies builds the cookie pair for an issued session. The token
// cookie is deliberately not HTTP-only: client-side code reads it for the
// token-from-URL handoff flow. The refresh cookie is.
func SessionCookies(sess *idp.Session, cfg config.CookieConfig) []*http.Cookie {
	return []*http.Cookie{
		{
			Name:     cfg.TokenName,
			Value:    sess.AccessToken,
			Path:     "/",
			MaxAge:   int(cfg.MaxAge.Seconds()),
			HttpOnly: false,
			SameSite: http.SameSiteLaxMode,
			Secure:   cfg.Secure,
		},
		{
			Name:     cfg.RefreshName,
			Value:    sess.RefreshToken,
			Path:     "/",
			MaxAge:   int((30 * 24 * time.Hour).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   cfg.Secure,
		},
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
