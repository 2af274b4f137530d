package claims

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/store"
)

// AuthContext is the resolved authorization context returned by the
// current-user endpoint and consumed by the client-side session provider.
type AuthContext struct {
	UserID                 string `json:"id"`
	Name                   string `json:"name"`
	FirstName              string `json:"firstName"`
	LastName               string `json:"lastName"`
	Email                  string `json:"email"`
	Role                   string `json:"role"`
	UserPlatformID         string `json:"userPlatformId"`
	OrganizationPlatformID string `json:"organizationPlatformId,omitempty"`
	EntityPlatformID       string `json:"entityPlatformId,omitempty"`
	AvatarURL              string `json:"avatarUrl,omitempty"`
}

// Resolver combines a credential's embedded claims with profile and role
// lookups to produce the AuthContext.
//
// Lookup failures are never fatal: a missing profile or role assignment
// degrades to defaults. Only a missing credential surfaces as ErrNoSession.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve derives the authorization context for already-validated claims.
//
// Merge rules: embedded claims win for organization/entity context; the
// database supplies the internal platform id and the display role when the
// claims are silent.
func (r *Resolver) Resolve(ctx context.Context, tc *TokenClaims) (*AuthContext, error) {
	if tc == nil {
		return nil, ErrNoSession
	}
	userID := tc.UserIdentifier()
	if userID == "" {
		return nil, ErrNoSession
	}

	profile, err := r.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("Profile lookup failed, using defaults")
		}
		profile = nil
	}

	platformID := tc.UserPlatformID
	if profile != nil && profile.UserPlatformID != "" {
		platformID = profile.UserPlatformID
	}

	email := tc.Email
	if profile != nil && profile.Email != "" {
		email = profile.Email
	}

	out := &AuthContext{
		UserID:                 userID,
		Email:                  email,
		Role:                   r.resolveRole(ctx, tc, platformID),
		OrganizationPlatformID: tc.OrganizationPlatformID,
		EntityPlatformID:       tc.EntityPlatformID,
	}

	// The external id doubles as the platform id when no profile row
	// exists yet.
	out.UserPlatformID = platformID
	if out.UserPlatformID == "" {
		out.UserPlatformID = userID
	}

	fallback := NameFromEmail(email)
	if profile != nil {
		out.FirstName = profile.FirstName
		out.LastName = profile.LastName
		out.AvatarURL = ExtractStorageURL(profile.AvatarStorage)
	}
	out.Name = strings.TrimSpace(out.FirstName + " " + out.LastName)
	if out.Name == "" {
		out.Name = fallback
	}
	if out.Name == "" {
		out.Name = DefaultRole
	}
	if out.FirstName == "" && fallback != "" {
		out.FirstName = strings.Fields(fallback)[0]
	}

	return out, nil
}

// resolveRole picks the display role: the primary active assignment (lowest
// privilege level) wins, then the embedded role claim, then the default.
func (r *Resolver) resolveRole(ctx context.Context, tc *TokenClaims, platformID string) string {
	if platformID != "" {
		assignments, err := r.store.ListActiveRoleAssignments(ctx, platformID)
		if err != nil {
			log.Warn().Err(err).Str("user_platform_id", platformID).Msg("Role lookup failed, using defaults")
		} else if len(assignments) > 0 {
			primary := assignments[0]
			if primary.DisplayName != "" {
				return primary.DisplayName
			}
			return FormatRoleName(primary.RoleName)
		}
	}
	if tc.Role != "" {
		return FormatRoleName(tc.Role)
	}
	return DefaultRole
}

// storageRef is the stored shape of an avatar_storage value.
type storageRef struct {
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// ExtractStorageURL pulls a public URL out of a stored avatar reference.
// The field has carried several shapes over time (a bare URL string, an
// object with a url, an object with bucket+path); anything unreadable
// yields an empty string rather than an error.
func ExtractStorageURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var ref storageRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	if ref.URL != "" {
		return ref.URL
	}
	if ref.Bucket != "" && ref.Path != "" {
		return "/storage/" + ref.Bucket + "/" + strings.TrimPrefix(ref.Path, "/")
	}
	return ""
}
