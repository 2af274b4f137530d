// Package store provides the storage interface and implementations for the
// FURFIELD org portal. Handler and resolver code depend on the Store
// interface only, so the in-memory implementation (local development, tests)
// and the PostgreSQL implementation are interchangeable.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Profile is the portal-side profile row for an externally-authenticated
// user. UserID is the identity provider's user id; UserPlatformID is the
// internal denormalized platform identifier used by role and ownership
// joins.
type Profile struct {
	UserID         string          `json:"user_id"`
	UserPlatformID string          `json:"user_platform_id"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Email          string          `json:"email,omitempty"`
	AvatarStorage  json.RawMessage `json:"avatar_storage,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Organization is an organization owned by a platform user.
type Organization struct {
	OrganizationPlatformID string    `json:"organization_platform_id"`
	OrganizationName       string    `json:"organization_name"`
	BrandName              string    `json:"brand_name,omitempty"`
	Email                  string    `json:"email,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	City                   string    `json:"city,omitempty"`
	State                  string    `json:"state,omitempty"`
	Country                string    `json:"country,omitempty"`
	OwnerPlatformID        string    `json:"owner_platform_id"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
}

// Entity is an operating unit (e.g. a hospital) under an organization.
type Entity struct {
	EntityPlatformID       string    `json:"entity_platform_id"`
	EntityName             string    `json:"entity_name"`
	EntityType             string    `json:"entity_type,omitempty"`
	OrganizationPlatformID string    `json:"organization_platform_id"`
	Email                  string    `json:"email,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	City                   string    `json:"city,omitempty"`
	State                  string    `json:"state,omitempty"`
	Country                string    `json:"country,omitempty"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
}

// RoleAssignment is an active platform role held by a user, joined with the
// role definition. PrivilegeLevel ranks roles; lower values mean higher
// authority.
type RoleAssignment struct {
	AssignmentID   string `json:"assignment_id"`
	UserPlatformID string `json:"user_platform_id"`
	RoleName       string `json:"role_name"`
	DisplayName    string `json:"display_name,omitempty"`
	PrivilegeLevel int    `json:"privilege_level"`
}

// ── Sub-interfaces ──────────────────────────────────────────

type ProfileStore interface {
	// GetProfileByUserID looks up a profile by the identity provider's
	// user id. Returns ErrNotFound when no profile exists.
	GetProfileByUserID(ctx context.Context, userID string) (*Profile, error)
	CreateProfile(ctx context.Context, p *Profile) error
}

type OrganizationStore interface {
	// ListOrganizationsByOwner returns the active, non-deleted
	// organizations owned by the platform user, ordered by name.
	ListOrganizationsByOwner(ctx context.Context, ownerPlatformID string) ([]Organization, error)
	CreateOrganization(ctx context.Context, o *Organization) error
}

type EntityStore interface {
	ListEntitiesByOrganization(ctx context.Context, orgPlatformID string) ([]Entity, error)
	// ListEntitiesForOwner returns entities across every organization the
	// platform user owns.
	ListEntitiesForOwner(ctx context.Context, ownerPlatformID string) ([]Entity, error)
	CreateEntity(ctx context.Context, e *Entity) error
}

type RoleStore interface {
	// ListActiveRoleAssignments returns the user's active role
	// assignments ordered by privilege level ascending, so the first
	// element is the primary role.
	ListActiveRoleAssignments(ctx context.Context, userPlatformID string) ([]RoleAssignment, error)
	AssignRole(ctx context.Context, userPlatformID, roleName string) error
}

// Store is the primary storage interface for the org portal.
type Store interface {
	ProfileStore
	OrganizationStore
	EntityStore
	RoleStore

	// Ping checks if the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}
