// Package idp is the HTTP client for the external FURFIELD auth service,
// the single source of truth for credential issuance, refresh, and
// revocation. The portal never mints or signs tokens itself.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected indicates the auth service refused the request (bad
// credentials, expired refresh token, unconfirmed account).
var ErrRejected = errors.New("auth service rejected request")

// User is the auth service's view of an account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an issued credential pair. A sign-up that requires email
// confirmation yields no session.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Client talks to the auth service's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the auth service at baseURL with a bounded
// per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
	Error   string   `json:"error"`
}

// SignIn exchanges email+password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.postSession(ctx, "/api/auth/signin", credentialsRequest{Email: email, Password: password})
}

// SignUp registers a new account. The returned session is nil when the
// auth service requires email confirmation before issuing credentials.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.postSession(ctx, "/api/auth/signup", credentialsRequest{Email: email, Password: password})
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	return c.postSession(ctx, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken})
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("sign out: %w (status %d)", ErrRejected, resp.StatusCode)
	}
	return nil
}

func (c *Client) postSession(ctx context.Context, path string, payload any) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	if out.Session != nil && out.Session.User.ID == "" && out.User != nil {
		out.Session.User = *out.User
	}
	return out.Session, nil
}
