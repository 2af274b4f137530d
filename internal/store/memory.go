package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// roleDef is a built-in platform role definition for the in-memory store.
// The PostgreSQL store reads these from the platform_roles table instead.
type roleDef struct {
	displayName    string
	privilegeLevel int
}

var builtinRoles = map[string]roleDef{
	"platform_admin":     {privilegeLevel: 1},
	"organization_admin": {displayName: "Organization Admin", privilegeLevel: 2},
	"entity_manager":     {privilegeLevel: 3},
	"organization_user":  {privilegeLevel: 10},
}

// MemoryStore is a thread-safe in-memory implementation of Store.
// Used for local development and tests; it holds no role table beyond the
// built-in platform roles.
type MemoryStore struct {
	mu            sync.RWMutex
	profiles      map[string]*Profile // key: user_id
	organizations map[string]*Organization
	entities      map[string]*Entity
	assignments   map[string][]RoleAssignment // key: user_platform_id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:      make(map[string]*Profile),
		organizations: make(map[string]*Organization),
		entities:      make(map[string]*Entity),
		assignments:   make(map[string][]RoleAssignment),
	}
}

func (s *MemoryStore) GetProfileByUserID(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.UserID]; exists {
		return fmt.Errorf("profile %s already exists", p.UserID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

func (s *MemoryStore) ListOrganizationsByOwner(_ context.Context, ownerPlatformID string) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Organization
	for _, o := range s.organizations {
		if o.OwnerPlatformID == ownerPlatformID && o.IsActive {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OrganizationName < result[j].OrganizationName
	})
	return result, nil
}

func (s *MemoryStore) CreateOrganization(_ context.Context, o *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.OrganizationPlatformID == "" {
		o.OrganizationPlatformID = uuid.New().String()
	}
	if _, exists := s.organizations[o.OrganizationPlatformID]; exists {
		return fmt.Errorf("organization %s already exists", o.OrganizationPlatformID)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	cp := *o
	s.organizations[o.OrganizationPlatformID] = &cp
	return nil
}

func (s *MemoryStore) ListEntitiesByOrganization(_ context.Context, orgPlatformID string) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Entity
	for _, e := range s.entities {
		if e.OrganizationPlatformID == orgPlatformID && e.IsActive {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityName < result[j].EntityName
	})
	return result, nil
}

func (s *MemoryStore) ListEntitiesForOwner(ctx context.Context, ownerPlatformID string) ([]Entity, error) {
	orgs, err := s.ListOrganizationsByOwner(ctx, ownerPlatformID)
	if err != nil {
		return nil, err
	}

	var result []Entity
	for _, o := range orgs {
		entities, err := s.ListEntitiesByOrganization(ctx, o.OrganizationPlatformID)
		if err != nil {
			return nil, err
		}
		result = append(result, entities...)
	}
	return result, nil
}

func (s *MemoryStore) CreateEntity(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.EntityPlatformID == "" {
		e.EntityPlatformID = uuid.New().String()
	}
	if _, exists := s.entities[e.EntityPlatformID]; exists {
		return fmt.Errorf("entity %s already exists", e.EntityPlatformID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	s.entities[e.EntityPlatformID] = &cp
	return nil
}

func (s *MemoryStore) ListActiveRoleAssignments(_ context.Context, userPlatformID string) ([]RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assignments := s.assignments[userPlatformID]
	result := make([]RoleAssignment, len(assignments))
	copy(result, assignments)
	sort.Slice(result, func(i, j int) bool {
		return result[i].PrivilegeLevel < result[j].PrivilegeLevel
	})
	return result, nil
}

func (s *MemoryStore) AssignRole(_ context.Context, userPlatformID, roleName string) error {
	def, ok := builtinRoles[roleName]
	if !ok {
		return fmt.Errorf("unknown role %q", roleName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignments[userPlatformID] = append(s.assignments[userPlatformID], RoleAssignment{
		AssignmentID:   uuid.New().String(),
		UserPlatformID: userPlatformID,
		RoleName:       roleName,
		DisplayName:    def.displayName,
		PrivilegeLevel: def.privilegeLevel,
	})
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// SeedDemoData populates the store with a demo profile, organization,
// entity, and role assignment for local development.
func (s *MemoryStore) SeedDemoData(ctx context.Context) error {
	profile := &Profile{
		UserID:         "demo-user",
		UserPlatformID: "UPF-0001",
		FirstName:      "Demo",
		LastName:       "Owner",
		Email:          "demo.owner@furfield.dev",
		AvatarStorage:  json.RawMessage(`{"url":"https://storage.furfield.dev/avatars/demo.png"}`),
	}
	if err := s.CreateProfile(ctx, profile); err != nil {
		return err
	}

	org := &Organization{
		OrganizationPlatformID: "ORG-0001",
		OrganizationName:       "Furfield Veterinary Group",
		BrandName:              "Furfield",
		OwnerPlatformID:        profile.UserPlatformID,
		Country:                "US",
		IsActive:               true,
	}
	if err := s.CreateOrganization(ctx, org); err != nil {
		return err
	}

	entity := &Entity{
		EntityPlatformID:       "ENT-0001",
		EntityName:             "Furfield Animal Hospital",
		EntityType:             "hospital",
		OrganizationPlatformID: org.OrganizationPlatformID,
		City:                   "Austin",
		State:                  "TX",
		Country:                "US",
		IsActive:               true,
	}
	if err := s.CreateEntity(ctx, entity); err != nil {
		return err
	}

	return s.AssignRole(ctx, profile.UserPlatformID, "organization_admin")
}
