package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore is the production Store implementation over PostgreSQL,
// using database/sql with the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to PostgreSQL and tunes the connection pool.
func OpenPostgres(dsn string, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing database handle. Used by tests with
// sqlmock.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) Close() error { return s.db.Close() }

// DB exposes the underlying handle for the migration runner.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) GetProfileByUserID(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	var firstName, lastName, email sql.NullString
	var avatar []byte
	err := s.db.QueryRowContext(ctx, `
		select user_id, user_platform_id, first_name, last_name, email, avatar_storage, created_at, updated_at
		from profiles where user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.UserPlatformID, &firstName, &lastName, &email, &avatar, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Email = email.String
	p.AvatarStorage = avatar
	return p, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into profiles (user_id, user_platform_id, first_name, last_name, email, avatar_storage, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.UserID, p.UserPlatformID, p.FirstName, p.LastName, p.Email, []byte(p.AvatarStorage), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListOrganizationsByOwner(ctx context.Context, ownerPlatformID string) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select organization_platform_id, organization_name, brand_name, email, phone, city, state, country, owner_platform_id, is_active, created_at
		from organizations
		where owner_platform_id = $1 and is_active = true and deleted_at is null
		order by organization_name`,
		ownerPlatformID,
	)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var result []Organization
	for rows.Next() {
		var o Organization
		var brand, email, phone, city, state, country sql.NullString
		if err := rows.Scan(&o.OrganizationPlatformID, &o.OrganizationName, &brand, &email, &phone,
			&city, &state, &country, &o.OwnerPlatformID, &o.IsActive, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		o.BrandName = brand.String
		o.Email = email.String
		o.Phone = phone.String
		o.City = city.String
		o.State = state.String
		o.Country = country.String
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, o *Organization) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into organizations (organization_platform_id, organization_name, brand_name, email, phone, city, state, country, owner_platform_id, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.OrganizationPlatformID, o.OrganizationName, o.BrandName, o.Email, o.Phone,
		o.City, o.State, o.Country, o.OwnerPlatformID, o.IsActive, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEntitiesByOrganization(ctx context.Context, orgPlatformID string) ([]Entity, error) {
	return s.queryEntities(ctx, `
		select entity_platform_id, entity_name, entity_type, organization_platform_id, email, phone, city, state, country, is_active, created_at
		from organization_entities
		where organization_platform_id = $1 and is_active = true
		order by entity_name`,
		orgPlatformID,
	)
}

func (s *PostgresStore) ListEntitiesForOwner(ctx context.Context, ownerPlatformID string) ([]Entity, error) {
	return s.queryEntities(ctx, `
		select e.entity_platform_id, e.entity_name, e.entity_type, e.organization_platform_id, e.email, e.phone, e.city, e.state, e.country, e.is_active, e.created_at
		from organization_entities e
		join organizations o on o.organization_platform_id = e.organization_platform_id
		where o.owner_platform_id = $1 and o.is_active = true and o.deleted_at is null and e.is_active = true
		order by e.entity_name`,
		ownerPlatformID,
	)
}

func (s *PostgresStore) queryEntities(ctx context.Context, query string, args ...any) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var result []Entity
	for rows.Next() {
		var e Entity
		var etype, email, phone, city, state, country sql.NullString
		if err := rows.Scan(&e.EntityPlatformID, &e.EntityName, &etype, &e.OrganizationPlatformID,
			&email, &phone, &city, &state, &country, &e.IsActive, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.EntityType = etype.String
		e.Email = email.String
		e.Phone = phone.String
		e.City = city.String
		e.State = state.String
		e.Country = country.String
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateEntity(ctx context.Context, e *Entity) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into organization_entities (entity_platform_id, entity_name, entity_type, organization_platform_id, email, phone, city, state, country, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.EntityPlatformID, e.EntityName, e.EntityType, e.OrganizationPlatformID, e.Email,
		e.Phone, e.City, e.State, e.Country, e.IsActive, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActiveRoleAssignments(ctx context.Context, userPlatformID string) ([]RoleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select a.assignment_id, a.user_platform_id, r.role_name, r.display_name, r.privilege_level
		from user_role_assignments a
		join platform_roles r on r.role_id = a.role_id
		where a.user_platform_id = $1 and a.is_active = true
		order by r.privilege_level asc`,
		userPlatformID,
	)
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	defer rows.Close()

	var result []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var display sql.NullString
		if err := rows.Scan(&a.AssignmentID, &a.UserPlatformID, &a.RoleName, &display, &a.PrivilegeLevel); err != nil {
			return nil, fmt.Errorf("scan role assignment: %w", err)
		}
		a.DisplayName = display.String
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *PostgresStore) AssignRole(ctx context.Context, userPlatformID, roleName string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_role_assignments (assignment_id, user_platform_id, role_id, is_active, created_at)
		select gen_random_uuid(), $1, role_id, true, now()
		from platform_roles where role_name = $2`,
		userPlatformID, roleName,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}
