// Package mongo provides a MongoDB implementation of the keysmith
// composite store using grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colClaims         = "keysmith_claims"
	colRoles          = "keysmith_roles"
	colRoleGrants     = "keysmith_role_grants"
	colRoleHierarchy  = "keysmith_role_hierarchy"
	colAssignments    = "keysmith_assignments"
	colServiceClients = "keysmith_service_clients"
	colClientClaims   = "keysmith_client_claims"
	colAPIKeys        = "keysmith_api_keys"
	colRefreshTokens  = "keysmith_refresh_tokens"
	colDenyList       = "keysmith_deny_list"
	colAuditLog       = "keysmith_audit_log"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite keysmith store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all keysmith collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("keysmith/mongo: migrate %s indexes: %w", col, err)
		}
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

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all keysmith collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colClaims: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colRoles: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colRoleGrants: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "claim_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "claim_id", Value: 1}}},
		},
		colRoleHierarchy: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "parent_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
		colAssignments: {
			{
				Keys: bson.D{
					{Key: "tenant_id", Value: 1},
					{Key: "user_id", Value: 1},
					{Key: "role_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		colServiceClients: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "creator_user_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colClientClaims: {
			{
				Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "claim_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		colAPIKeys: {
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		colRefreshTokens: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "jti", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}}},
		},
		colDenyList: {
			{
				Keys: bson.D{
					{Key: "tenant_id", Value: 1},
					{Key: "kind", Value: 1},
					{Key: "value", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colAuditLog: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "operation", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Claim operations
// ──────────────────────────────────────────────────

func (s *Store) CreateClaim(ctx context.Context, c *claim.Claim) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	m := claimToModel(c)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create claim: %w", err)
	}
	return nil
}

func (s *Store) GetClaim(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	var m claimModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": claimID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("claim %s: %w", claimID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get claim: %w", err)
	}
	return claimFromModel(&m), nil
}

func (s *Store) GetClaimByName(ctx context.Context, tenantID, name string) (*claim.Claim, error) {
	var m claimModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "name": name}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("claim %q: %w", name, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get claim by name: %w", err)
	}
	return claimFromModel(&m), nil
}

func (s *Store) ListClaims(ctx context.Context, filter *claim.ListFilter) ([]*claim.Claim, error) {
	var models []claimModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	_, err := s.mdb.NewDelete((*claimModel)(nil)).
		Filter(bson.M{"_id": claimID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete claim: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now()
	}
	m := roleToModel(r)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleBySlug(ctx context.Context, tenantID, slug string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "slug": slug}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role slug %q: %w", slug, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get role by slug: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	r.UpdatedAt = now()
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: update role: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, errNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	rid := roleID.String()
	if _, err := s.mdb.NewDelete((*roleGrantModel)(nil)).
		Many().
		Filter(bson.M{"role_id": rid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role grants: %w", err)
	}
	if _, err := s.mdb.NewDelete((*hierarchyEdgeModel)(nil)).
		Many().
		Filter(bson.M{"$or": bson.A{bson.M{"role_id": rid}, bson.M{"parent_id": rid}}}).
		Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role hierarchy edges: %w", err)
	}
	if _, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": rid}).
		Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.IsSystem != nil {
			f["is_system"] = *filter.IsSystem
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": filter.Search, "$options": "i"}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list role grants: %w", err)
	}
	result := make([]*role.Grant, len(models))
	for i := range models {
		result[i] = grantFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) SetRoleGrants(ctx context.Context, roleID id.RoleID, grants []*role.Grant) error {
	// Delete all existing grants for this role.
	_, err := s.mdb.NewDelete((*roleGrantModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
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
		if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
			return fmt.Errorf("keysmith: set role grants: %w", err)
		}
	}
	return nil
}

func (s *Store) ListHierarchy(ctx context.Context, tenantID string) ([]*role.HierarchyEdge, error) {
	var models []hierarchyEdgeModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID}).
		Scan(ctx); err != nil {
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return nil // edge already present
		}
		return fmt.Errorf("keysmith: add hierarchy edge: %w", err)
	}
	return nil
}

func (s *Store) RemoveHierarchyEdge(ctx context.Context, tenantID string, edge *role.HierarchyEdge) error {
	_, err := s.mdb.NewDelete((*hierarchyEdgeModel)(nil)).
		Filter(bson.M{
			"tenant_id": tenantID,
			"role_id":   edge.RoleID.String(),
			"parent_id": edge.ParentID.String(),
		}).
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
		a.CreatedAt = now()
	}
	m := assignmentToModel(a)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create assignment: %w", err)
	}
	return nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assignmentID id.AssignmentID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Filter(bson.M{"_id": assignmentID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete assignment: %w", err)
	}
	return nil
}

func (s *Store) ListUserAssignments(ctx context.Context, tenantID, userID string) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx); err != nil {
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
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		if filter.RoleID != nil {
			f["role_id"] = filter.RoleID.String()
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now()
	}
	m := clientToModel(c)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID id.ServiceClientID) (*serviceclient.ServiceClient, error) {
	var m serviceClientModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": clientID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("client %s: %w", clientID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get client: %w", err)
	}
	return clientFromModel(&m), nil
}

func (s *Store) ListClientsByCreator(ctx context.Context, tenantID, creatorUserID string) ([]*serviceclient.ServiceClient, error) {
	var models []serviceClientModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "creator_user_id": creatorUserID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx); err != nil {
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
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.CreatorUserID != "" {
			f["creator_user_id"] = filter.CreatorUserID
		}
		if filter.Status != "" {
			f["status"] = string(filter.Status)
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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

// UpdateClient writes the client back guarded by its version. A zero match
// count means another writer bumped the version first.
func (s *Store) UpdateClient(ctx context.Context, c *serviceclient.ServiceClient) (bool, error) {
	prev := c.Version
	c.Version++
	c.UpdatedAt = now()
	m := clientToModel(c)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": prev}).
		Exec(ctx)
	if err != nil {
		c.Version = prev
		return false, fmt.Errorf("keysmith: update client: %w", err)
	}
	if res.MatchedCount() == 0 {
		c.Version = prev
		return false, nil
	}
	return true, nil
}

func (s *Store) CreateClientClaim(ctx context.Context, cc *serviceclient.ClientClaim) error {
	if cc.CreatedAt.IsZero() {
		cc.CreatedAt = now()
	}
	m := clientClaimToModel(cc)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create client claim: %w", err)
	}
	return nil
}

func (s *Store) ListClientClaims(ctx context.Context, clientID id.ServiceClientID) ([]*serviceclient.ClientClaim, error) {
	var models []clientClaimModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"client_id": clientID.String()}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("keysmith: list client claims: %w", err)
	}
	result := make([]*serviceclient.ClientClaim, len(models))
	for i := range models {
		result[i] = clientClaimFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteClientClaims(ctx context.Context, clientID id.ServiceClientID) error {
	_, err := s.mdb.NewDelete((*clientClaimModel)(nil)).
		Many().
		Filter(bson.M{"client_id": clientID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("keysmith: delete client claims: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// API key operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.APIKey) error {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = now()
	}
	if k.UpdatedAt.IsZero() {
		k.UpdatedAt = now()
	}
	m := apiKeyToModel(k)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create api key: %w", err)
	}
	return nil
}

func (s *Store) GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.APIKey, error) {
	var m apiKeyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": keyID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("api key %s: %w", keyID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get api key: %w", err)
	}
	return apiKeyFromModel(&m), nil
}

func (s *Store) ListClientAPIKeys(ctx context.Context, clientID id.ServiceClientID) ([]*apikey.APIKey, error) {
	var models []apiKeyModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"client_id": clientID.String()}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx); err != nil {
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
	k.UpdatedAt = now()
	m := apiKeyToModel(k)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": prev}).
		Exec(ctx)
	if err != nil {
		k.Version = prev
		return false, fmt.Errorf("keysmith: update api key: %w", err)
	}
	if res.MatchedCount() == 0 {
		k.Version = prev
		return false, nil
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Refresh token operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRefreshToken(ctx context.Context, t *refreshtoken.RefreshToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now()
	}
	m := refreshTokenToModel(t)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create refresh token: %w", err)
	}
	return nil
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenID id.RefreshTokenID) (*refreshtoken.RefreshToken, error) {
	var m refreshTokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("refresh token %s: %w", tokenID, errNotFound)
		}
		return nil, fmt.Errorf("keysmith: get refresh token: %w", err)
	}
	return refreshTokenFromModel(&m), nil
}

func (s *Store) ListUserRefreshTokens(ctx context.Context, tenantID, userID string) ([]*refreshtoken.RefreshToken, error) {
	var models []refreshTokenModel
	if err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "user_id": userID}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx); err != nil {
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
	t.UpdatedAt = now()
	m := refreshTokenToModel(t)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "version": prev}).
		Exec(ctx)
	if err != nil {
		t.Version = prev
		return false, fmt.Errorf("keysmith: update refresh token: %w", err)
	}
	if res.MatchedCount() == 0 {
		t.Version = prev
		return false, nil
	}
	return true, nil
}

// ──────────────────────────────────────────────────
// Deny list operations
// ──────────────────────────────────────────────────

// UpsertEntry registers a deny entry. An existing (tenant, kind, value)
// document is only touched when the new expiry extends it, so overlapping
// cascades converge on the longest-lived entry.
func (s *Store) UpsertEntry(ctx context.Context, e *denylist.Entry) error {
	f := bson.M{"tenant_id": e.TenantID, "kind": string(e.Kind), "value": e.Value}
	var m denyEntryModel
	err := s.mdb.NewFind(&m).Filter(f).Scan(ctx)
	if err != nil {
		if !isNoDocuments(err) {
			return fmt.Errorf("keysmith: upsert deny entry: %w", err)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now()
		}
		nm := denyEntryToModel(e)
		if _, err := s.mdb.NewInsert(nm).Exec(ctx); err != nil {
			if mongod.IsDuplicateKeyError(err) {
				return nil // lost the race to a concurrent cascade
			}
			return fmt.Errorf("keysmith: upsert deny entry: %w", err)
		}
		return nil
	}
	if !e.ExpiresAt.After(m.ExpiresAt) {
		return nil
	}
	m.ExpiresAt = e.ExpiresAt
	m.Reason = e.Reason
	if _, err := s.mdb.NewUpdate(&m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: upsert deny entry: %w", err)
	}
	return nil
}

func (s *Store) IsDenied(ctx context.Context, tenantID string, kind denylist.Kind, value string, now time.Time) (bool, error) {
	count, err := s.mdb.NewFind((*denyEntryModel)(nil)).
		Filter(bson.M{
			"tenant_id":  tenantID,
			"kind":       string(kind),
			"value":      value,
			"expires_at": bson.M{"$gt": now},
		}).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("keysmith: deny lookup: %w", err)
	}
	return count > 0, nil
}

func (s *Store) ListEntries(ctx context.Context, filter *denylist.ListFilter) ([]*denylist.Entry, error) {
	var models []denyEntryModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Kind != "" {
			f["kind"] = string(filter.Kind)
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	res, err := s.mdb.NewDelete((*denyEntryModel)(nil)).
		Many().
		Filter(bson.M{"expires_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge deny entries: %w", err)
	}
	return res.DeletedCount(), nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(ctx context.Context, e *audit.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	m := auditToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("keysmith: create audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	f := bson.M{}
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Operation != "" {
			f["operation"] = string(filter.Operation)
		}
		if filter.UserID != "" {
			f["user_id"] = filter.UserID
		}
		created := bson.M{}
		if filter.After != nil {
			created["$gte"] = *filter.After
		}
		if filter.Before != nil {
			created["$lte"] = *filter.Before
		}
		if len(created) > 0 {
			f["created_at"] = created
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	res, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("keysmith: purge audit entries: %w", err)
	}
	return res.DeletedCount(), nil
}
