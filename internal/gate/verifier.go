package gate

import (
	"context"
	"net/http"
)

// Verdict is a session verifier's answer for one request.
type Verdict struct {
	// Valid reports whether the request carries a live session.
	Valid bool

	// SetCookies carries refreshed session cookies from a managed session
	// client; the gate forwards them on the allowed response.
	SetCookies []*http.Cookie
}

// Verifier decides whether a request's session credential is valid.
//
// Two implementations ship: Introspector validates an explicit bearer
// token against the auth service's verification endpoint behind a
// short-lived verdict cache, and SessionClient delegates to the auth
// service's cookie session, silently refreshing an expiring one. The
// deployment picks one via configuration.
//
// Contract:
//   - (Verdict{Valid: true}, nil) → live session, allow
//   - (Verdict{}, nil) → no or invalid credential
//   - (Verdict{}, error) → verification could not be completed; the gate
//     treats this as invalid (fail-closed), never as allow
type Verifier interface {
	// Name identifies the strategy ("introspect", "session").
	Name() string

	// Verify checks the request's credential. token is the credential the
	// gate extracted from the cookie or URL; implementations that manage
	// their own cookie state may ignore it.
	Verify(ctx context.Context, token string, r *http.Request) (Verdict, error)
}
