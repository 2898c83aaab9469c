package keysmith

import (
	"context"
	"sync"
	"testing"

	"github.com/xraph/keysmith/assignment"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/plugin"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
	"github.com/xraph/keysmith/store/memory"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func seedClaim(t *testing.T, s *memory.Store, name string) *claim.Claim {
	t.Helper()
	c := &claim.Claim{ID: id.NewClaimID(), TenantID: "t1", Name: name}
	if err := s.CreateClaim(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	return c
}

func seedRole(t *testing.T, s *memory.Store, slug string, grants ...*role.Grant) *role.Role {
	t.Helper()
	ctx := context.Background()
	r := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: slug, Slug: slug}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	if len(grants) > 0 {
		if err := s.SetRoleGrants(ctx, r.ID, grants); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func addParent(t *testing.T, s *memory.Store, child, parent id.RoleID) {
	t.Helper()
	err := s.AddHierarchyEdge(context.Background(), "t1", &role.HierarchyEdge{RoleID: child, ParentID: parent})
	if err != nil {
		t.Fatal(err)
	}
}

func assignRole(t *testing.T, s *memory.Store, userID string, roleID id.RoleID) *assignment.Assignment {
	t.Helper()
	a := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", UserID: userID, RoleID: roleID}
	if err := s.CreateAssignment(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestResolveRequiresTenant(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.ResolveUserClaims(context.Background(), "u1")
	if err != ErrTenantRequired {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

// fakeCache records calls so tests can assert cache interaction.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]map[string]claim.Level
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]map[string]claim.Level)}
}

func (f *fakeCache) Get(_ context.Context, tenantID, userID string) (map[string]claim.Level, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.entries[tenantID+":"+userID]
	return m, ok
}

func (f *fakeCache) Set(_ context.Context, tenantID, userID string, claims map[string]claim.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[tenantID+":"+userID] = claims
}

func (f *fakeCache) InvalidateUser(_ context.Context, tenantID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tenantID + ":" + userID
	delete(f.entries, key)
	f.invalidated = append(f.invalidated, key)
}

func (f *fakeCache) InvalidateTenant(_ context.Context, tenantID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.entries {
		if len(k) > len(tenantID) && k[:len(tenantID)+1] == tenantID+":" {
			delete(f.entries, k)
		}
	}
}

func TestResolveUsesCache(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	fc := newFakeCache()
	eng, s := newTestEngine(t, WithCache(fc))

	c := seedClaim(t, s, "approve_expense")
	r := seedRole(t, s, "manager", &role.Grant{ClaimID: c.ID, Level: 3})
	assignRole(t, s, "u1", r.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected 3, got %d", claims["approve_expense"])
	}

	// Shrink the grant behind the cache's back; the cached value must win.
	if err := s.SetRoleGrants(ctx, r.ID, []*role.Grant{{ClaimID: c.ID, Level: 1}}); err != nil {
		t.Fatal(err)
	}
	claims, err = eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected cached 3, got %d", claims["approve_expense"])
	}
}

func TestResolveZeroCacheTTLDisablesCache(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	fc := newFakeCache()
	cfg := DefaultConfig()
	cfg.CacheTTL = 0
	eng, s := newTestEngine(t, WithCache(fc), WithConfig(cfg))

	c := seedClaim(t, s, "approve_expense")
	r := seedRole(t, s, "manager", &role.Grant{ClaimID: c.ID, Level: 3})
	assignRole(t, s, "u1", r.ID)

	if _, err := eng.ResolveUserClaims(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fc.Get(ctx, "t1", "u1"); ok {
		t.Fatal("zero cache TTL must bypass the cache entirely")
	}
}

// shutdownPlugin records the shutdown hook.
type shutdownPlugin struct {
	called bool
}

func (p *shutdownPlugin) Name() string { return "shutdown-recorder" }

func (p *shutdownPlugin) OnShutdown(_ context.Context) error {
	p.called = true
	return nil
}

var _ plugin.Shutdown = (*shutdownPlugin)(nil)

func TestStopEmitsShutdown(t *testing.T) {
	sp := &shutdownPlugin{}
	eng, _ := newTestEngine(t, WithPlugin(sp))

	if err := eng.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sp.called {
		t.Fatal("expected shutdown hook to fire")
	}
}

// TestManagerEmployeeLifecycle walks the full delegation lifecycle: a manager
// delegates a client within their ceiling, is demoted, the recalculation
// pass ratchets the client down, and offboarding revokes everything.
func TestManagerEmployeeLifecycle(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	reports := seedClaim(t, s, "view_reports")

	employee := seedRole(t, s, "employee",
		&role.Grant{ClaimID: expense.ID, Level: 1},
		&role.Grant{ClaimID: reports.ID, Level: 1},
	)
	manager := seedRole(t, s, "manager",
		&role.Grant{ClaimID: expense.ID, Level: 5},
		&role.Grant{ClaimID: reports.ID, Defer: true},
	)
	addParent(t, s, manager.ID, employee.ID)

	a := assignRole(t, s, "alice", manager.ID)

	claims, err := eng.ResolveUserClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 5 {
		t.Fatalf("manager should resolve 5, got %d", claims["approve_expense"])
	}
	if claims["view_reports"] != 1 {
		t.Fatalf("deferred claim should resolve the parent's 1, got %d", claims["view_reports"])
	}

	// Delegate a client within the ceiling.
	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "expense-bot"},
		map[id.ClaimID]claim.Level{expense.ID: 3},
	)
	if err != nil {
		t.Fatal(err)
	}
	if client == nil {
		t.Fatal("delegation within the ceiling should succeed")
	}

	// Demote alice to employee.
	if err := s.DeleteAssignment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	assignRole(t, s, "alice", employee.ID)

	changes, err := eng.RecalculateClientClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if changes == nil {
		t.Fatal("expected changes after demotion")
	}
	if len(changes.Changes) != 1 || changes.Changes[0].New != 1 {
		t.Fatalf("expected expense ratcheted to 1, got %+v", changes.Changes)
	}

	// Offboard alice.
	summary, err := eng.RevokeAllUserTokens(ctx, "alice", "offboarded")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Clients != 1 {
		t.Fatalf("expected 1 client revoked, got %d", summary.Clients)
	}
	revoked, err := eng.IsUserRevoked(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected alice to be revoked")
	}
}
