package claims

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/furfield/orgportal/internal/store"
)

// failingStore errors on every lookup; the resolver should degrade to
// claim-derived defaults instead of surfacing the failure.
type failingStore struct {
	store.Store
}

func (f *failingStore) GetProfileByUserID(context.Context, string) (*store.Profile, error) {
	return nil, errors.New("connection refused")
}

func (f *failingStore) ListActiveRoleAssignments(context.Context, string) ([]store.RoleAssignment, error) {
	return nil, errors.New("connection refused")
}

func seedProfile(t *testing.T, s *store.MemoryStore, p *store.Profile) {
	t.Helper()
	if err := s.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestResolveNilClaims(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())
	if _, err := r.Resolve(context.Background(), nil); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), &TokenClaims{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("claims without a user id: expected ErrNoSession, got %v", err)
	}
}

func TestResolveFullProfile(t *testing.T) {
	s := store.NewMemoryStore()
	seedProfile(t, s, &store.Profile{
		UserID:         "user-1",
		UserPlatformID: "UPF-0001",
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane.doe@example.com",
		AvatarStorage:  json.RawMessage(`{"url":"https://cdn.example.com/jane.png"}`),
	})
	if err := s.AssignRole(context.Background(), "UPF-0001", "organization_admin"); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	r := NewResolver(s)
	got, err := r.Resolve(context.Background(), &TokenClaims{
		UserID:                 "user-1",
		OrganizationPlatformID: "ORG-0001",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if got.UserID != "user-1" || got.UserPlatformID != "UPF-0001" {
		t.Errorf("identity fields: %+v", got)
	}
	if got.Name != "Jane Doe" || got.FirstName != "Jane" || got.LastName != "Doe" {
		t.Errorf("name fields: %+v", got)
	}
	if got.Role != "Organization Admin" {
		t.Errorf("Role = %q, want Organization Admin", got.Role)
	}
	if got.OrganizationPlatformID != "ORG-0001" {
		t.Errorf("organization context from claims lost: %+v", got)
	}
	if got.AvatarURL != "https://cdn.example.com/jane.png" {
		t.Errorf("AvatarURL = %q", got.AvatarURL)
	}
}

func TestResolveLowestPrivilegeLevelWins(t *testing.T) {
	s := store.NewMemoryStore()
	seedProfile(t, s, &store.Profile{UserID: "user-1", UserPlatformID: "UPF-0001"})
	ctx := context.Background()
	for _, role := range []string{"organization_user", "platform_admin", "entity_manager"} {
		if err := s.AssignRole(ctx, "UPF-0001", role); err != nil {
			t.Fatalf("assign %s: %v", role, err)
		}
	}

	got, err := NewResolver(s).Resolve(ctx, &TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// platform_admin has the lowest privilege level and no display name,
	// so the formatted role name is used.
	if got.Role != "Platform Admin" {
		t.Errorf("Role = %q, want Platform Admin", got.Role)
	}
}

func TestResolveNoProfileFallsBackToClaims(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	got, err := r.Resolve(context.Background(), &TokenClaims{
		UserID: "user-9",
		Email:  "sam.jones@example.com",
		Role:   "entity_manager",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.UserPlatformID != "user-9" {
		t.Errorf("UserPlatformID = %q, want the external id as fallback", got.UserPlatformID)
	}
	if got.Name != "Sam Jones" || got.FirstName != "Sam" {
		t.Errorf("name derived from email: %+v", got)
	}
	if got.Role != "Entity Manager" {
		t.Errorf("Role = %q, want formatted claim role", got.Role)
	}
}

func TestResolveDefaultsWithNothing(t *testing.T) {
	r := NewResolver(store.NewMemoryStore())

	got, err := r.Resolve(context.Background(), &TokenClaims{UserID: "user-x"})
	if err != nil {
		t.Fatalf("resolve must not fail on missing data: %v", err)
	}
	if got.Role != DefaultRole {
		t.Errorf("Role = %q, want %q", got.Role, DefaultRole)
	}
	if got.Name != DefaultRole {
		t.Errorf("Name = %q, want the default when no email exists", got.Name)
	}
}

func TestResolveDegradesOnStoreFailure(t *testing.T) {
	r := NewResolver(&failingStore{})

	got, err := r.Resolve(context.Background(), &TokenClaims{
		UserID:         "user-1",
		UserPlatformID: "UPF-0001",
		Email:          "jane@example.com",
		Role:           "organization_admin",
	})
	if err != nil {
		t.Fatalf("store failure must degrade, not error: %v", err)
	}
	if got.UserPlatformID != "UPF-0001" {
		t.Errorf("UserPlatformID = %q", got.UserPlatformID)
	}
	if got.Role != "Organization Admin" {
		t.Errorf("Role = %q, want the formatted claim role", got.Role)
	}
	if got.Name != "Jane" {
		t.Errorf("Name = %q, want name from email", got.Name)
	}
}

func TestResolveProfilePlatformIDWinsOverClaims(t *testing.T) {
	s := store.NewMemoryStore()
	seedProfile(t, s, &store.Profile{UserID: "user-1", UserPlatformID: "UPF-REAL"})

	got, err := NewResolver(s).Resolve(context.Background(), &TokenClaims{
		UserID:         "user-1",
		UserPlatformID: "UPF-STALE",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.UserPlatformID != "UPF-REAL" {
		t.Errorf("UserPlatformID = %q, want the profile row's value", got.UserPlatformID)
	}
}
