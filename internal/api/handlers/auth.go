package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/claims"
	"github.com/furfield/orgportal/internal/gate"
	"github.com/furfield/orgportal/internal/idp"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Me returns the resolved authorization context for the current session.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.sessionClaims(w, r)
	if !ok {
		return
	}

	authCtx, err := h.Resolver.Resolve(r.Context(), tc)
	if err != nil {
		if errors.Is(err, claims.ErrNoSession) {
			respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		log.Error().Err(err).Msg("Failed to resolve authorization context")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, authCtx)
}

// SignIn proxies credentials to the auth service and sets the session
// cookies on success.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := h.IDP.SignIn(r.Context(), req.Email, req.Password)
	if err != nil || sess == nil {
		log.Info().Err(err).Str("email", req.Email).Msg("Sign-in rejected")
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	for _, c := range gate.SessionCookies(sess, h.cookies) {
		http.SetCookie(w, c)
	}

	log.Info().Str("email", sess.User.Email).Msg("User signed in")
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    sess.User,
	})
}

// SignUp registers a new account with the auth service. When the service
// requires email confirmation, no cookies are set.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := h.IDP.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, idp.ErrRejected) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Sign-up failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if sess == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Please check your email to confirm your account",
		})
		return
	}

	for _, c := range gate.SessionCookies(sess, h.cookies) {
		http.SetCookie(w, c)
	}

	log.Info().Str("email", sess.User.Email).Msg("User signed up")
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    sess.User,
	})
}

// legacyCookies are cleared on logout alongside the current pair; they may
// linger from previous portal versions.
var legacyCookies = []string{"furfield_user", "furfield_session"}

// Logout revokes the session upstream and clears every session cookie.
// Revocation failure still clears the cookies: the browser's session ends
// either way.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookies.TokenName); err == nil && c.Value != "" {
		if err := h.IDP.SignOut(r.Context(), c.Value); err != nil {
			log.Warn().Err(err).Msg("Upstream sign-out failed")
		}
	}

	for _, name := range append([]string{h.cookies.TokenName, h.cookies.RefreshName}, legacyCookies...) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteLaxMode,
			Secure:   h.cookies.Secure,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
