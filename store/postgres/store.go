// Package postgres provides a PostgreSQL implementation of the keysmith
// composite store using grove ORM with Go-based migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/keysmith/apikey"
	"github.com/xraph/keysmith/assignment"
	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/denylist"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/refreshtoken"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
	"github.com/xraph/keysmith/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a PostgreSQL implementation of the composite keysmith store.
type Store struct {
	db   *grove.DB
	pgdb *pgdriver.PgDB
}

// New creates a new PostgreSQL store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		pgdb: pgdriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pgdb)
	if err != nil {
		return fmt.Errorf("keysmith: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("keysmith: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Claim operations
// ──────────────────────────────────────────────────

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m := claimToModel(c)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	m := new(claimModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", claimID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim %s: %w", claimID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get claim: %w", err)
	}
	return claimFromModel(m), nil
}

func (s *Store) GetClaimByName(ctx context.Context, tenantID, name string) (*claim.Claim, error) {
	m := new(claimModel)
	err := s.pgdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("claim %q: %w", name, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get claim by name: %w", err)
	}
	return claimFromModel(m), nil
}

func (s *Store) ListClaims(ctx context.Context, filter *claim.ListFilter) ([]*claim.Claim, error) {
	var models []claimModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list claims: %w", err)
	}
	result := make([]*claim.Claim, len(models))
	for i := range models {
		result[i] = claimFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteClaim(ctx context.Context, claimID id.ClaimID) error {
	_, err := s.pgdb.NewDelete((*claimModel)(nil)).
		Where("id = ?", claimID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete claim: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	m := roleToModel(r)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get role: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleBySlug(ctx context.Context, tenantID, slug string) (*role.Role, error) {
	m := new(roleModel)
	err := s.pgdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("slug = ?", slug).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role slug %q: %w", slug, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get role by slug: %w", err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = time.Now().UTC()
	m := roleToModel(r)
	_, err := s.pgdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: update role: %w", err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("keysmith: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	rid := roleID.String()
	if _, err := tx.NewDelete((*roleGrantModel)(nil)).
		Where("role_id = ?", rid).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role grants: %w", err)
	}
	if _, err := tx.NewDelete((*hierarchyEdgeModel)(nil)).
		Where("role_id = ? OR parent_id = ?", rid, rid).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role hierarchy edges: %w", err)
	}
	if _, err := tx.NewDelete((*roleModel)(nil)).
		Where("id = ?", rid).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("keysmith: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.IsSystem != nil {
			q = q.Where("is_system = ?", *filter.IsSystem)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListRoleGrants(ctx context.Context, roleID id.RoleID) ([]*role.Grant, error) {
	var models []roleGrantModel
	err := s.pgdb.NewSelect(&models).
		Where("role_id = ?", roleID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list role grants: %w", err)
	}
	result := make([]*role.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) SetRoleGrants(ctx context.Context, roleID id.RoleID, grants []*role.Grant) error {
	tx, err := s.pgdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("keysmith: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	// Delete existing grants for this role.
	_, err = tx.NewDelete((*roleGrantModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: clear role grants: %w", err)
	}

	// Insert the replacement set.
	if len(grants) > 0 {
		models := make([]roleGrantModel, len(grants))
		for i, g := range grants {
			g.RoleID = roleID
			models[i] = *grantToModel(g)
		}
		_, err = tx.NewInsert(&models).Exec(ctx)
		if err != nil {
			return fmt.Errorf("keysmith: set role grants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("keysmith: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListHierarchy(ctx context.Context, tenantID string) ([]*role.HierarchyEdge, error) {
	var models []hierarchyEdgeModel
	err := s.pgdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list hierarchy: %w", err)
	}
	result := make([]*role.HierarchyEdge, len(models))
	for i := range models {
		result[i] = edgeFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) AddHierarchyEdge(ctx context.Context, tenantID string, edge *role.HierarchyEdge) error {
	m := &hierarchyEdgeModel{
		TenantID: tenantID,
		RoleID:   edge.RoleID.String(),
		ParentID: edge.ParentID.String(),
	}
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(role_id, parent_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: add hierarchy edge: %w", err)
	}
	return nil
}

func (s *Store) RemoveHierarchyEdge(ctx context.Context, tenantID string, edge *role.HierarchyEdge) error {
	_, err := s.pgdb.NewDelete((*hierarchyEdgeModel)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("role_id = ?", edge.RoleID.String()).
		Where("parent_id = ?", edge.ParentID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: remove hierarchy edge: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m := assignmentToModel(a)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create assignment: %w", err)
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assignmentID id.AssignmentID) error {
	_, err := s.pgdb.NewDelete((*assignmentModel)(nil)).
		Where("id = ?", assignmentID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete assignment: %w", err)
	}
	return nil
}

func (s *Store) ListUserAssignments(ctx context.Context, tenantID, userID string) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	err := s.pgdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list user assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Service client operations
// ──────────────────────────────────────────────────

func (s *Store) CreateClient(ctx context.Context, c *serviceclient.ServiceClient) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	m := clientToModel(c)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID id.ServiceClientID) (*serviceclient.ServiceClient, error) {
	m := new(serviceClientModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", clientID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client %s: %w", clientID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get client: %w", err)
	}
	return clientFromModel(m), nil
}

func (s *Store) ListClientsByCreator(ctx context.Context, tenantID, creatorUserID string) ([]*serviceclient.ServiceClient, error) {
	var models []serviceClientModel
	err := s.pgdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("creator_user_id = ?", creatorUserID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list clients by creator: %w", err)
	}
	result := make([]*serviceclient.ServiceClient, len(models))
	for i := range models {
		result[i] = clientFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListClients(ctx context.Context, filter *serviceclient.ListFilter) ([]*serviceclient.ServiceClient, error) {
	var models []serviceClientModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.CreatorUserID != "" {
			q = q.Where("creator_user_id = ?", filter.CreatorUserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", string(filter.Status))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list clients: %w", err)
	}
	result := make([]*serviceclient.ServiceClient, len(models))
	for i := range models {
		result[i] = clientFromModel(&models[i])
	}
	return result, nil
}

// UpdateClient writes the client back guarded by its version. Zero rows
// affected means another writer bumped the version first.
func (s *Store) UpdateClient(ctx context.Context, c *serviceclient.ServiceClient) (bool, error) {
	prev := c.Version
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	m := clientToModel(c)
	res, err := s.pgdb.NewUpdate(m).
		Where("id = ?", m.ID).
		Where("version = ?", prev).
		Exec(ctx)
	if err != nil {
		c.Version = prev
		return false, fmt.Errorf("keysmith: update client: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		c.Version = prev
		return false, fmt.Errorf("keysmith: update client rows: %w", err)
	}
	if n == 0 {
		c.Version = prev
		return false, nil
	}
	return true, nil
}

func (s *Store) CreateClientClaim(ctx context.Context, cc *serviceclient.ClientClaim) error {
	if cc.CreatedAt.IsZero() {
		cc.CreatedAt = time.Now().UTC()
	}
	m := clientClaimToModel(cc)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create client claim: %w", err)
	}
	return nil
}

func (s *Store) ListClientClaims(ctx context.Context, clientID id.ServiceClientID) ([]*serviceclient.ClientClaim, error) {
	var models []clientClaimModel
	err := s.pgdb.NewSelect(&models).
		Where("client_id = ?", clientID.String()).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list client claims: %w", err)
	}
	result := make([]*serviceclient.ClientClaim, len(models))
	for i := range models {
		result[i] = clientClaimFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteClientClaims(ctx context.Context, clientID id.ServiceClientID) error {
	_, err := s.pgdb.NewDelete((*clientClaimModel)(nil)).
		Where("client_id = ?", clientID.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete client claims: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// API key operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.APIKey) error {
	now := time.Now().UTC()
	if k.CreatedAt.IsZero() {
		k.CreatedAt = now
	}
	if k.UpdatedAt.IsZero() {
		k.UpdatedAt = now
	}
	m := apiKeyToModel(k)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create api key: %w", err)
	}
	return nil
}

func (s *Store) GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.APIKey, error) {
	m := new(apiKeyModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", keyID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("api key %s: %w", keyID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get api key: %w", err)
	}
	return apiKeyFromModel(m), nil
}

func (s *Store) ListClientAPIKeys(ctx context.Context, clientID id.ServiceClientID) ([]*apikey.APIKey, error) {
	var models []apiKeyModel
	err := s.pgdb.NewSelect(&models).
		Where("client_id = ?", clientID.String()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list client api keys: %w", err)
	}
	result := make([]*apikey.APIKey, len(models))
	for i := range models {
		result[i] = apiKeyFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateAPIKey(ctx context.Context, k *apikey.APIKey) (bool, error) {
	prev := k.Version
	k.Version++
	k.UpdatedAt = time.Now().UTC()
	m := apiKeyToModel(k)
	res, err := s.pgdb.NewUpdate(m).
		Where("id = ?", m.ID).
		Where("version = ?", prev).
		Exec(ctx)
	if err != nil {
		k.Version = prev
		return false, fmt.Errorf("keysmith: update api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		k.Version = prev
		return false, fmt.Errorf("keysmith: update api key rows: %w", err)
	}
	if n == 0 {
		k.Version = prev
		return false, nil
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Refresh token operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRefreshToken(ctx context.Context, t *refreshtoken.RefreshToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	m := refreshTokenToModel(t)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenID id.RefreshTokenID) (*refreshtoken.RefreshToken, error) {
	m := new(refreshTokenModel)
	err := s.pgdb.NewSelect(m).Where("id = ?", tokenID.String()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token %s: %w", tokenID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get refresh token: %w", err)
	}
	return refreshTokenFromModel(m), nil
}

func (s *Store) ListUserRefreshTokens(ctx context.Context, tenantID, userID string) ([]*refreshtoken.RefreshToken, error) {
	var models []refreshTokenModel
	err := s.pgdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("keysmith: list user refresh tokens: %w", err)
	}
	result := make([]*refreshtoken.RefreshToken, len(models))
	for i := range models {
		result[i] = refreshTokenFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateRefreshToken(ctx context.Context, t *refreshtoken.RefreshToken) (bool, error) {
	prev := t.Version
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	m := refreshTokenToModel(t)
	res, err := s.pgdb.NewUpdate(m).
		Where("id = ?", m.ID).
		Where("version = ?", prev).
		Exec(ctx)
	if err != nil {
		t.Version = prev
		return false, fmt.Errorf("keysmith: update refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		t.Version = prev
		return false, fmt.Errorf("keysmith: update refresh token rows: %w", err)
	}
	if n == 0 {
		t.Version = prev
		return false, nil
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Deny list operations
// ──────────────────────────────────────────────────

// UpsertEntry registers a deny entry. An existing (tenant, kind, value)
// row is only touched when the new expiry extends it, so overlapping
// cascades converge on the longest-lived entry.
func (s *Store) UpsertEntry(ctx context.Context, e *denylist.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := denyEntryToModel(e)
	_, err := s.pgdb.NewInsert(m).
		OnConflict("(tenant_id, kind, value) DO UPDATE SET expires_at = EXCLUDED.expires_at, reason = EXCLUDED.reason WHERE keysmith_deny_list.expires_at < EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: upsert deny entry: %w", err)
	}
	return nil
}

func (s *Store) IsDenied(ctx context.Context, tenantID string, kind denylist.Kind, value string, now time.Time) (bool, error) {
	count, err := s.pgdb.NewSelect((*denyEntryModel)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("kind = ?", string(kind)).
		Where("value = ?", value).
		Where("expires_at > ?", now).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("keysmith: deny lookup: %w", err)
	}
	return count > 0, nil
}

func (s *Store) ListEntries(ctx context.Context, filter *denylist.ListFilter) ([]*denylist.Entry, error) {
	var models []denyEntryModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Kind != "" {
			q = q.Where("kind = ?", string(filter.Kind))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list deny entries: %w", err)
	}
	result := make([]*denylist.Entry, len(models))
	for i := range models {
		result[i] = denyEntryFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeExpiredEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*denyEntryModel)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge deny entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge deny entries rows: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := auditToModel(e)
	_, err := s.pgdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.pgdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Operation != "" {
			q = q.Where("operation = ?", string(filter.Operation))
		}
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.After != nil {
			q = q.Where("created_at >= ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at <= ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list audit entries: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pgdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge audit entries rows: %w", err)
	}
	return n, nil
}
