// Package memory provides an in-memory implementation of the Keysmith
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xraph/keysmith/apikey"
	"github.com/xraph/keysmith/assignment"
	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/denylist"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/refreshtoken"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
)

// Compile-time interface checks.
var (
	_ claim.Store         = (*Store)(nil)
	_ role.Store          = (*Store)(nil)
	_ assignment.Store    = (*Store)(nil)
	_ serviceclient.Store = (*Store)(nil)
	_ apikey.Store        = (*Store)(nil)
	_ refreshtoken.Store  = (*Store)(nil)
	_ denylist.Store      = (*Store)(nil)
	_ audit.Store         = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Keysmith entities.
// Versioned entities (service clients, API keys, refresh tokens) honor the
// same optimistic-concurrency contract as the database backends.
type Store struct {
	mu sync.RWMutex

	claims        map[string]*claim.Claim
	roles         map[string]*role.Role
	roleGrants    map[string][]*role.Grant         // roleID -> grants
	hierarchy     map[string][]*role.HierarchyEdge // tenantID -> edges
	assignments   map[string]*assignment.Assignment
	clients       map[string]*serviceclient.ServiceClient
	clientClaims  map[string][]*serviceclient.ClientClaim // clientID -> rows
	apiKeys       map[string]*apikey.APIKey
	refreshTokens map[string]*refreshtoken.RefreshToken
	denyEntries   map[string]*denylist.Entry // tenant|kind|value -> entry
	auditEntries  map[string]*audit.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		claims:        make(map[string]*claim.Claim),
		roles:         make(map[string]*role.Role),
		roleGrants:    make(map[string][]*role.Grant),
		hierarchy:     make(map[string][]*role.HierarchyEdge),
		assignments:   make(map[string]*assignment.Assignment),
		clients:       make(map[string]*serviceclient.ServiceClient),
		clientClaims:  make(map[string][]*serviceclient.ClientClaim),
		apiKeys:       make(map[string]*apikey.APIKey),
		refreshTokens: make(map[string]*refreshtoken.RefreshToken),
		denyEntries:   make(map[string]*denylist.Entry),
		auditEntries:  make(map[string]*audit.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Claim Store
// ──────────────────────────────────────────────────

func (s *Store) CreateClaim(_ context.Context, c *claim.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ID.String()] = copyClaim(c)
	return nil
}

func (s *Store) GetClaim(_ context.Context, claimID id.ClaimID) (*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID.String()]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", claimID, errNotFound)
	}
	return copyClaim(c), nil
}

func (s *Store) GetClaimByName(_ context.Context, tenantID, name string) (*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.claims {
		if c.TenantID == tenantID && c.Name == name {
			return copyClaim(c), nil
		}
	}
	return nil, fmt.Errorf("claim name %q: %w", name, errNotFound)
}

func (s *Store) ListClaims(_ context.Context, filter *claim.ListFilter) ([]*claim.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*claim.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		if filter != nil {
			if filter.TenantID != "" && c.TenantID != filter.TenantID {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyClaim(c))
	}
	return applyPagination(result, paginationOptsClaim(filter)), nil
}

func (s *Store) DeleteClaim(_ context.Context, claimID id.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, claimID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, errNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleBySlug(_ context.Context, tenantID, slug string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.TenantID == tenantID && r.Slug == slug {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role slug %q: %w", slug, errNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, errNotFound)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	delete(s.roles, rk)
	delete(s.roleGrants, rk)
	for tenant, edges := range s.hierarchy {
		kept := edges[:0]
		for _, e := range edges {
			if e.RoleID.String() != rk && e.ParentID.String() != rk {
				kept = append(kept, e)
			}
		}
		s.hierarchy[tenant] = kept
	}
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.IsSystem != nil && r.IsSystem != *filter.IsSystem {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	return applyPagination(result, paginationOptsRole(filter)), nil
}

func (s *Store) ListRoleGrants(_ context.Context, roleID id.RoleID) ([]*role.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grants := s.roleGrants[roleID.String()]
	result := make([]*role.Grant, 0, len(grants))
	for _, g := range grants {
		result = append(result, copyGrant(g))
	}
	return result, nil
}

func (s *Store) SetRoleGrants(_ context.Context, roleID id.RoleID, grants []*role.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]*role.Grant, 0, len(grants))
	for _, g := range grants {
		c := copyGrant(g)
		c.RoleID = roleID
		stored = append(stored, c)
	}
	s.roleGrants[roleID.String()] = stored
	return nil
}

func (s *Store) ListHierarchy(_ context.Context, tenantID string) ([]*role.HierarchyEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.hierarchy[tenantID]
	result := make([]*role.HierarchyEdge, 0, len(edges))
	for _, e := range edges {
		c := *e
		result = append(result, &c)
	}
	return result, nil
}

func (s *Store) AddHierarchyEdge(_ context.Context, tenantID string, edge *role.HierarchyEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.hierarchy[tenantID] {
		if e.RoleID.String() == edge.RoleID.String() && e.ParentID.String() == edge.ParentID.String() {
			return nil
		}
	}
	c := *edge
	s.hierarchy[tenantID] = append(s.hierarchy[tenantID], &c)
	return nil
}

func (s *Store) RemoveHierarchyEdge(_ context.Context, tenantID string, edge *role.HierarchyEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edges := s.hierarchy[tenantID]
	kept := edges[:0]
	for _, e := range edges {
		if e.RoleID.String() != edge.RoleID.String() || e.ParentID.String() != edge.ParentID.String() {
			kept = append(kept, e)
		}
	}
	s.hierarchy[tenantID] = kept
	return nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.ID.String()] = copyAssignment(a)
	return nil
}

func (s *Store) DeleteAssignment(_ context.Context, assignmentID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, assignmentID.String())
	return nil
}

func (s *Store) ListUserAssignments(_ context.Context, tenantID, userID string) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*assignment.Assignment
	for _, a := range s.assignments {
		if a.TenantID == tenantID && a.UserID == userID {
			result = append(result, copyAssignment(a))
		}
	}
	return result, nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.UserID != "" && a.UserID != filter.UserID {
				continue
			}
			if filter.RoleID != nil && a.RoleID.String() != filter.RoleID.String() {
				continue
			}
		}
		result = append(result, copyAssignment(a))
	}
	return applyPagination(result, paginationOptsAssign(filter)), nil
}

// ──────────────────────────────────────────────────
// ServiceClient Store
// ──────────────────────────────────────────────────

func (s *Store) CreateClient(_ context.Context, c *serviceclient.ServiceClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID.String()] = copyClient(c)
	return nil
}

func (s *Store) GetClient(_ context.Context, clientID id.ServiceClientID) (*serviceclient.ServiceClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID.String()]
	if !ok {
		return nil, fmt.Errorf("service client %s: %w", clientID, errNotFound)
	}
	return copyClient(c), nil
}

func (s *Store) ListClientsByCreator(_ context.Context, tenantID, creatorUserID string) ([]*serviceclient.ServiceClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*serviceclient.ServiceClient
	for _, c := range s.clients {
		if c.TenantID == tenantID && c.CreatorUserID == creatorUserID {
			result = append(result, copyClient(c))
		}
	}
	return result, nil
}

func (s *Store) ListClients(_ context.Context, filter *serviceclient.ListFilter) ([]*serviceclient.ServiceClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*serviceclient.ServiceClient, 0, len(s.clients))
	for _, c := range s.clients {
		if filter != nil {
			if filter.TenantID != "" && c.TenantID != filter.TenantID {
				continue
			}
			if filter.CreatorUserID != "" && c.CreatorUserID != filter.CreatorUserID {
				continue
			}
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
		}
		result = append(result, copyClient(c))
	}
	return applyPagination(result, paginationOptsClient(filter)), nil
}

// UpdateClient succeeds only when the stored version matches c.Version.
// On success the version is bumped on both the stored row and the caller's
// copy.
func (s *Store) UpdateClient(_ context.Context, c *serviceclient.ServiceClient) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.clients[c.ID.String()]
	if !ok {
		return false, fmt.Errorf("service client %s: %w", c.ID, errNotFound)
	}
	if stored.Version != c.Version {
		return false, nil
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.clients[c.ID.String()] = copyClient(c)
	return true, nil
}

func (s *Store) CreateClientClaim(_ context.Context, cc *serviceclient.ClientClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ck := cc.ClientID.String()
	s.clientClaims[ck] = append(s.clientClaims[ck], copyClientClaim(cc))
	return nil
}

func (s *Store) ListClientClaims(_ context.Context, clientID id.ServiceClientID) ([]*serviceclient.ClientClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.clientClaims[clientID.String()]
	result := make([]*serviceclient.ClientClaim, 0, len(rows))
	for _, cc := range rows {
		result = append(result, copyClientClaim(cc))
	}
	return result, nil
}

func (s *Store) DeleteClientClaims(_ context.Context, clientID id.ServiceClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clientClaims, clientID.String())
	return nil
}

// ──────────────────────────────────────────────────
// APIKey Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAPIKey(_ context.Context, k *apikey.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKeys[k.ID.String()] = copyAPIKey(k)
	return nil
}

func (s *Store) GetAPIKey(_ context.Context, keyID id.APIKeyID) (*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.apiKeys[keyID.String()]
	if !ok {
		return nil, fmt.Errorf("api key %s: %w", keyID, errNotFound)
	}
	return copyAPIKey(k), nil
}

func (s *Store) ListClientAPIKeys(_ context.Context, clientID id.ServiceClientID) ([]*apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*apikey.APIKey
	for _, k := range s.apiKeys {
		if k.ClientID.String() == clientID.String() {
			result = append(result, copyAPIKey(k))
		}
	}
	return result, nil
}

func (s *Store) UpdateAPIKey(_ context.Context, k *apikey.APIKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.apiKeys[k.ID.String()]
	if !ok {
		return false, fmt.Errorf("api key %s: %w", k.ID, errNotFound)
	}
	if stored.Version != k.Version {
		return false, nil
	}
	k.Version++
	k.UpdatedAt = time.Now().UTC()
	s.apiKeys[k.ID.String()] = copyAPIKey(k)
	return true, nil
}

// ──────────────────────────────────────────────────
// RefreshToken Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRefreshToken(_ context.Context, t *refreshtoken.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[t.ID.String()] = copyRefreshToken(t)
	return nil
}

func (s *Store) GetRefreshToken(_ context.Context, tokenID id.RefreshTokenID) (*refreshtoken.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.refreshTokens[tokenID.String()]
	if !ok {
		return nil, fmt.Errorf("refresh token %s: %w", tokenID, errNotFound)
	}
	return copyRefreshToken(t), nil
}

func (s *Store) ListUserRefreshTokens(_ context.Context, tenantID, userID string) ([]*refreshtoken.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*refreshtoken.RefreshToken
	for _, t := range s.refreshTokens {
		if t.TenantID == tenantID && t.UserID == userID {
			result = append(result, copyRefreshToken(t))
		}
	}
	return result, nil
}

func (s *Store) UpdateRefreshToken(_ context.Context, t *refreshtoken.RefreshToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.refreshTokens[t.ID.String()]
	if !ok {
		return false, fmt.Errorf("refresh token %s: %w", t.ID, errNotFound)
	}
	if stored.Version != t.Version {
		return false, nil
	}
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	s.refreshTokens[t.ID.String()] = copyRefreshToken(t)
	return true, nil
}

// ──────────────────────────────────────────────────
// DenyList Store
// ──────────────────────────────────────────────────

func denyKey(tenantID string, kind denylist.Kind, value string) string {
	return tenantID + "|" + string(kind) + "|" + value
}

// UpsertEntry is idempotent: re-registering an already denied value keeps
// the original entry and extends its expiration if the new one is later.
func (s *Store) UpsertEntry(_ context.Context, e *denylist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := denyKey(e.TenantID, e.Kind, e.Value)
	if existing, ok := s.denyEntries[key]; ok {
		if e.ExpiresAt.After(existing.ExpiresAt) {
			existing.ExpiresAt = e.ExpiresAt
			existing.Reason = e.Reason
		}
		return nil
	}
	s.denyEntries[key] = copyDenyEntry(e)
	return nil
}

func (s *Store) IsDenied(_ context.Context, tenantID string, kind denylist.Kind, value string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.denyEntries[denyKey(tenantID, kind, value)]
	if !ok {
		return false, nil
	}
	return e.ExpiresAt.After(now), nil
}

func (s *Store) ListEntries(_ context.Context, filter *denylist.ListFilter) ([]*denylist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*denylist.Entry, 0, len(s.denyEntries))
	for _, e := range s.denyEntries {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.Kind != "" && e.Kind != filter.Kind {
				continue
			}
		}
		result = append(result, copyDenyEntry(e))
	}
	return applyPagination(result, paginationOptsDeny(filter)), nil
}

func (s *Store) PurgeExpiredEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.denyEntries {
		if e.ExpiresAt.Before(before) {
			delete(s.denyEntries, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAuditEntry(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEntries[e.ID.String()] = copyAuditEntry(e)
	return nil
}

func (s *Store) ListAuditEntries(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*audit.Entry, 0, len(s.auditEntries))
	for _, e := range s.auditEntries {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.Operation != "" && e.Operation != filter.Operation {
				continue
			}
			if filter.UserID != "" && e.UserID != filter.UserID {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyAuditEntry(e))
	}
	return applyPagination(result, paginationOptsAudit(filter)), nil
}

func (s *Store) PurgeAuditEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.auditEntries {
		if e.CreatedAt.Before(before) {
			delete(s.auditEntries, k)
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

var errNotFound = fmt.Errorf("not found")

func copyClaim(c *claim.Claim) *claim.Claim {
	cp := *c
	return &cp
}

func copyRole(r *role.Role) *role.Role {
	cp := *r
	return &cp
}

func copyGrant(g *role.Grant) *role.Grant {
	cp := *g
	return &cp
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	cp := *a
	return &cp
}

func copyClient(c *serviceclient.ServiceClient) *serviceclient.ServiceClient {
	cp := *c
	return &cp
}

func copyClientClaim(cc *serviceclient.ClientClaim) *serviceclient.ClientClaim {
	cp := *cc
	return &cp
}

func copyAPIKey(k *apikey.APIKey) *apikey.APIKey {
	cp := *k
	return &cp
}

func copyRefreshToken(t *refreshtoken.RefreshToken) *refreshtoken.RefreshToken {
	cp := *t
	return &cp
}

func copyDenyEntry(e *denylist.Entry) *denylist.Entry {
	cp := *e
	return &cp
}

func copyAuditEntry(e *audit.Entry) *audit.Entry {
	cp := *e
	return &cp
}

// Pagination helpers per filter type.
type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 && p.offset >= len(items) {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}

func paginationOptsClaim(f *claim.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsRole(f *role.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAssign(f *assignment.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsClient(f *serviceclient.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsDeny(f *denylist.ListFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func paginationOptsAudit(f *audit.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}
