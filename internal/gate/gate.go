// Package gate implements the request gate: the per-request decision point
// that determines whether an inbound request carries a valid session
// credential and what to do when it does not.
//
// Every request resolves to one of four outcomes: allow, redirect to the
// login surface (carrying the originally requested URL), redirect with
// cleared session cookies, or set-cookie-and-redirect for the
// token-in-URL handoff flow. Verification failures never escape as errors;
// the gate fails closed to a login redirect.
package gate

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/config"
	"github.com/furfield/orgportal/internal/metrics"
)

// Decision labels a gate outcome, used for logging and metrics.
type Decision string

const (
	DecisionAllow             Decision = "allow"
	DecisionRedirectLogin     Decision = "redirect_login"
	DecisionRedirectClear     Decision = "redirect_clear"
	DecisionSetCookieRedirect Decision = "set_cookie_redirect"
)

// TokenParam is the URL query parameter carrying a credential on the
// cross-application handoff flow.
const TokenParam = "token"

// defaultPublicPaths are always exempt from gating.
var defaultPublicPaths = []string{"/healthcheck", "/auth/login", "/auth/callback", "/auth/signup"}

// exemptPrefixes are handled by their own downstream logic: the API does
// its own credential checks, and static assets carry no session state.
var exemptPrefixes = []string{"/_next", "/api", "/static"}

var exemptExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".ico": true,
}

// Options configures the gate's cookie names, login surface, and public
// path set.
type Options struct {
	// LoginURL is the login surface, absolute (external auth service) or
	// a local path.
	LoginURL string

	// ReturnParam is the query parameter carrying the original URL
	// through the login redirect ("returnUrl" or "redirectTo").
	ReturnParam string

	// ReturnFullURL selects whether the return parameter carries the full
	// original URL (cross-origin login surface) or only the path.
	ReturnFullURL bool

	// ExtraPublicPaths extends the built-in public path set.
	ExtraPublicPaths []string

	Cookies config.CookieConfig
}

// Gate is the per-request authorization decision point. Construct once and
// mount in front of the application handler.
type Gate struct {
	verifier Verifier
	opts     Options
	public   map[string]bool
}

// New creates a Gate with the given verifier.
func New(verifier Verifier, opts Options) *Gate {
	if opts.ReturnParam == "" {
		opts.ReturnParam = "returnUrl"
	}
	public := make(map[string]bool)
	for _, p := range defaultPublicPaths {
		public[p] = true
	}
	for _, p := range opts.ExtraPublicPaths {
		public[p] = true
	}
	return &Gate{verifier: verifier, opts: opts, public: public}
}

// Middleware wraps next with the gate decision.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pathname := r.URL.Path

		if exemptPath(pathname) || g.public[pathname] {
			next.ServeHTTP(w, r)
			return
		}

		token, fromURL := g.extractToken(r)

		verdict, err := g.verifier.Verify(r.Context(), token, r)
		if err != nil {
			// Fail closed: a verification outage is indistinguishable
			// from an invalid credential.
			log.Info().Err(err).Str("path", pathname).Str("verifier", g.verifier.Name()).
				Msg("Session verification failed")
			verdict = Verdict{}
		}

		if !verdict.Valid {
			if token == "" {
				g.redirectLogin(w, r, DecisionRedirectLogin)
			} else {
				g.clearSessionCookies(w)
				g.redirectLogin(w, r, DecisionRedirectClear)
			}
			return
		}

		for _, c := range verdict.SetCookies {
			http.SetCookie(w, c)
		}

		if fromURL {
			g.persistURLToken(w, r, token)
			return
		}

		metrics.GateDecisions.WithLabelValues(string(DecisionAllow)).Inc()
		next.ServeHTTP(w, r)
	})
}

// extractToken locates the credential: the named cookie first, then the
// token query parameter.
func (g *Gate) extractToken(r *http.Request) (token string, fromURL bool) {
	if c, err := r.Cookie(g.opts.Cookies.TokenName); err == nil && c.Value != "" {
		return c.Value, false
	}
	if t := r.URL.Query().Get(TokenParam); t != "" {
		return t, true
	}
	return "", false
}

// redirectLogin sends the browser to the login surface with the original
// URL attached so the login flow can return the user afterward.
func (g *Gate) redirectLogin(w http.ResponseWriter, r *http.Request, decision Decision) {
	ret := r.URL.Path
	if g.opts.ReturnFullURL {
		ret = requestScheme(r) + "://" + r.Host + r.URL.RequestURI()
	}

	target := g.opts.LoginURL
	if u, err := url.Parse(target); err == nil {
		q := u.Query()
		q.Set(g.opts.ReturnParam, ret)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	log.Info().Str("path", r.URL.Path).Str("decision", string(decision)).Msg("Gate redirect")
	metrics.GateDecisions.WithLabelValues(string(decision)).Inc()
	http.Redirect(w, r, target, http.StatusFound)
}

// persistURLToken moves a URL-carried credential into the cookie and
// redirects to the same path with the token parameter stripped, so the
// token never lingers in browser history or referrer headers.
func (g *Gate) persistURLToken(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.Cookies.TokenName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.opts.Cookies.MaxAge.Seconds()),
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.opts.Cookies.Secure,
	})

	clean := *r.URL
	q := clean.Query()
	q.Del(TokenParam)
	clean.RawQuery = q.Encode()

	metrics.GateDecisions.WithLabelValues(string(DecisionSetCookieRedirect)).Inc()
	http.Redirect(w, r, clean.RequestURI(), http.StatusFound)
}

// clearSessionCookies expires both the primary token cookie and the
// refresh cookie.
func (g *Gate) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{g.opts.Cookies.TokenName, g.opts.Cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteLaxMode,
			Secure:   g.opts.Cookies.Secure,
		})
	}
}

func exemptPath(pathname string) bool {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(pathname, prefix) {
			return true
		}
	}
	if strings.HasPrefix(pathname, "/favicon") || pathname == "/site.webmanifest" {
		return true
	}
	return exemptExtensions[strings.ToLower(path.Ext(pathname))]
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		return fwd
	}
	return "http"
}
