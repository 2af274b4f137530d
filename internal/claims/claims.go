// Package claims decodes session credentials into a typed authorization
// context for the org portal.
//
// Two entry points exist with different trust assumptions: Verify checks
// the HS256 signature and is what API handlers use on a raw cookie token;
// Decode skips signature verification and must only be applied to
// credentials that already passed the request gate (or to non-security
// uses such as reading the expiry of a managed session before refresh).
package claims

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession indicates the request carries no usable session credential.
// Handlers map it to an unauthenticated response, not a server error.
var ErrNoSession = errors.New("no active session")

// ErrInvalidToken indicates the credential failed validation.
var ErrInvalidToken = errors.New("invalid token")

// DefaultRole is the baseline role when no active assignment exists.
const DefaultRole = "User"

// TokenClaims are the embedded claims of a FURFIELD session credential.
// All portal-specific fields are optional; absence means the resolver
// falls back to database lookups or defaults.
type TokenClaims struct {
	UserID                 string `json:"userId,omitempty"`
	UserPlatformID         string `json:"userPlatformId,omitempty"`
	OrganizationPlatformID string `json:"organizationPlatformId,omitempty"`
	EntityPlatformID       string `json:"entityPlatformId,omitempty"`
	Role                   string `json:"role,omitempty"`
	Email                  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserIdentifier returns the external user id, preferring the explicit
// userId claim over the registered subject.
func (c *TokenClaims) UserIdentifier() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ExpiresWithin reports whether the credential expires before now+window.
// A credential without an expiry claim never reports true.
func (c *TokenClaims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.Before(now.Add(window))
}

// Decode parses the credential's embedded claims without checking the
// signature. Callers own the trust boundary; see the package comment.
func Decode(token string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	tc := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, tc); err != nil {
		return nil, ErrInvalidToken
	}
	return tc, nil
}

// Verify parses the credential and validates its HS256 signature and
// expiry against the shared auth-service secret.
func Verify(token, secret string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	tc, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return tc, nil
}

// FormatRoleName turns an internal snake_case role name into a display
// string: "platform_admin" becomes "Platform Admin".
func FormatRoleName(roleName string) string {
	if roleName == "" {
		return ""
	}
	words := strings.Split(roleName, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// NameFromEmail derives a display name from an email's local part:
// separators become spaces and each word is capitalized, so
// "jane.doe@example.com" becomes "Jane Doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return ""
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
