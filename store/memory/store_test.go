package memory

import (
	"context"
	"testing"
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
	"github.com/xraph/keysmith/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func TestClaimCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	c := &claim.Claim{
		ID:       id.NewClaimID(),
		TenantID: "t1",
		Name:     "approve_expense",
	}

	if err := s.CreateClaim(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetClaim(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "approve_expense" {
		t.Fatalf("expected approve_expense, got %s", got.Name)
	}

	got, err = s.GetClaimByName(ctx, "t1", "approve_expense")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != c.ID {
		t.Fatal("name lookup mismatch")
	}

	list, _ := s.ListClaims(ctx, &claim.ListFilter{TenantID: "t1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(list))
	}

	if err := s.DeleteClaim(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetClaim(ctx, c.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestRoleGrantsAndHierarchy(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "Manager", Slug: "manager"}
	child := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "Employee", Slug: "employee"}
	if err := s.CreateRole(ctx, parent); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRole(ctx, child); err != nil {
		t.Fatal(err)
	}

	claimID := id.NewClaimID()
	grants := []*role.Grant{
		{ClaimID: claimID, Level: 3},
	}
	if err := s.SetRoleGrants(ctx, parent.ID, grants); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListRoleGrants(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Level != 3 {
		t.Fatalf("unexpected grants: %+v", got)
	}
	if got[0].RoleID != parent.ID {
		t.Fatal("SetRoleGrants should stamp the role ID")
	}

	// SetRoleGrants replaces wholesale.
	if err := s.SetRoleGrants(ctx, parent.ID, nil); err != nil {
		t.Fatal(err)
	}
	got, _ = s.ListRoleGrants(ctx, parent.ID)
	if len(got) != 0 {
		t.Fatalf("expected 0 grants after replace, got %d", len(got))
	}

	edge := &role.HierarchyEdge{RoleID: child.ID, ParentID: parent.ID}
	if err := s.AddHierarchyEdge(ctx, "t1", edge); err != nil {
		t.Fatal(err)
	}
	// Adding the same edge twice is a no-op.
	if err := s.AddHierarchyEdge(ctx, "t1", edge); err != nil {
		t.Fatal(err)
	}
	edges, _ := s.ListHierarchy(ctx, "t1")
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}

	if err := s.RemoveHierarchyEdge(ctx, "t1", edge); err != nil {
		t.Fatal(err)
	}
	edges, _ = s.ListHierarchy(ctx, "t1")
	if len(edges) != 0 {
		t.Fatalf("expected 0 edges, got %d", len(edges))
	}
}

func TestDeleteRoleCleansUp(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "Temp", Slug: "temp"}
	other := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Name: "Other", Slug: "other"}
	_ = s.CreateRole(ctx, r)
	_ = s.CreateRole(ctx, other)
	_ = s.SetRoleGrants(ctx, r.ID, []*role.Grant{{ClaimID: id.NewClaimID(), Level: 1}})
	_ = s.AddHierarchyEdge(ctx, "t1", &role.HierarchyEdge{RoleID: r.ID, ParentID: other.ID})

	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	grants, _ := s.ListRoleGrants(ctx, r.ID)
	if len(grants) != 0 {
		t.Fatal("grants should be removed with the role")
	}
	edges, _ := s.ListHierarchy(ctx, "t1")
	if len(edges) != 0 {
		t.Fatal("hierarchy edges should be removed with the role")
	}
}

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	s := New()

	roleID := id.NewRoleID()
	a := &assignment.Assignment{
		ID:       id.NewAssignmentID(),
		TenantID: "t1",
		UserID:   "u1",
		RoleID:   roleID,
	}
	if err := s.CreateAssignment(ctx, a); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListUserAssignments(ctx, "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(list))
	}

	list, _ = s.ListAssignments(ctx, &assignment.ListFilter{RoleID: &roleID})
	if len(list) != 1 {
		t.Fatalf("expected 1 assignment by role, got %d", len(list))
	}

	if err := s.DeleteAssignment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	list, _ = s.ListUserAssignments(ctx, "t1", "u1")
	if len(list) != 0 {
		t.Fatal("expected no assignments after delete")
	}
}

func TestUpdateClientOptimistic(t *testing.T) {
	ctx := context.Background()
	s := New()

	c := &serviceclient.ServiceClient{
		ID:            id.NewServiceClientID(),
		TenantID:      "t1",
		CreatorUserID: "u1",
		Name:          "reporting",
		Status:        serviceclient.StatusActive,
		Version:       1,
	}
	if err := s.CreateClient(ctx, c); err != nil {
		t.Fatal(err)
	}

	fresh, _ := s.GetClient(ctx, c.ID)
	fresh.Revoke(time.Now().UTC(), "test")
	ok, err := s.UpdateClient(ctx, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected update to succeed")
	}
	if fresh.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", fresh.Version)
	}

	// A writer holding the old version loses.
	stale := &serviceclient.ServiceClient{ID: c.ID, Version: 1, Status: serviceclient.StatusActive}
	ok, err = s.UpdateClient(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected stale update to be rejected")
	}

	got, _ := s.GetClient(ctx, c.ID)
	if got.Status != serviceclient.StatusRevoked {
		t.Fatal("stale write must not overwrite the revocation")
	}
}

func TestClientClaims(t *testing.T) {
	ctx := context.Background()
	s := New()

	clientID := id.NewServiceClientID()
	for i := 0; i < 3; i++ {
		cc := &serviceclient.ClientClaim{
			ID:       id.NewClientClaimID(),
			ClientID: clientID,
			ClaimID:  id.NewClaimID(),
			Level:    2,
			Version:  1,
		}
		if err := s.CreateClientClaim(ctx, cc); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.ListClientClaims(ctx, clientID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(rows))
	}

	if err := s.DeleteClientClaims(ctx, clientID); err != nil {
		t.Fatal(err)
	}
	rows, _ = s.ListClientClaims(ctx, clientID)
	if len(rows) != 0 {
		t.Fatal("expected no claims after delete")
	}
}

func TestUpdateAPIKeyOptimistic(t *testing.T) {
	ctx := context.Background()
	s := New()

	k := &apikey.APIKey{
		ID:       id.NewAPIKeyID(),
		ClientID: id.NewServiceClientID(),
		Name:     "ci",
		Status:   apikey.StatusActive,
		Version:  1,
	}
	if err := s.CreateAPIKey(ctx, k); err != nil {
		t.Fatal(err)
	}

	k.Revoke(time.Now().UTC())
	ok, err := s.UpdateAPIKey(ctx, k)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	stale := &apikey.APIKey{ID: k.ID, Version: 1}
	ok, err = s.UpdateAPIKey(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected stale update to be rejected")
	}
}

func TestUpdateRefreshTokenOptimistic(t *testing.T) {
	ctx := context.Background()
	s := New()

	tok := &refreshtoken.RefreshToken{
		ID:       id.NewRefreshTokenID(),
		TenantID: "t1",
		UserID:   "u1",
		JTI:      "jti-1",
		Status:   refreshtoken.StatusActive,
		Version:  1,
	}
	if err := s.CreateRefreshToken(ctx, tok); err != nil {
		t.Fatal(err)
	}

	list, _ := s.ListUserRefreshTokens(ctx, "t1", "u1")
	if len(list) != 1 {
		t.Fatalf("expected 1 token, got %d", len(list))
	}

	tok.Revoke(time.Now().UTC())
	ok, err := s.UpdateRefreshToken(ctx, tok)
	if err != nil || !ok {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}

	stale := &refreshtoken.RefreshToken{ID: tok.ID, Version: 1}
	ok, err = s.UpdateRefreshToken(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected stale update to be rejected")
	}
}

func TestDenyListUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	e := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  "t1",
		Kind:      denylist.KindUser,
		Value:     "u1",
		Reason:    "deactivated",
		ExpiresAt: now.Add(time.Hour),
	}
	if err := s.UpsertEntry(ctx, e); err != nil {
		t.Fatal(err)
	}

	denied, err := s.IsDenied(ctx, "t1", denylist.KindUser, "u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if !denied {
		t.Fatal("expected user to be denied")
	}

	// Re-upserting the same value extends rather than duplicates.
	later := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  "t1",
		Kind:      denylist.KindUser,
		Value:     "u1",
		ExpiresAt: now.Add(2 * time.Hour),
	}
	if err := s.UpsertEntry(ctx, later); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.ListEntries(ctx, &denylist.ListFilter{TenantID: "t1"})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].ExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatal("expected expiration to be extended")
	}

	// A shorter upsert never shortens the existing entry.
	shorter := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  "t1",
		Kind:      denylist.KindUser,
		Value:     "u1",
		ExpiresAt: now.Add(time.Minute),
	}
	if err := s.UpsertEntry(ctx, shorter); err != nil {
		t.Fatal(err)
	}
	entries, _ = s.ListEntries(ctx, &denylist.ListFilter{TenantID: "t1"})
	if !entries[0].ExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatal("expiration must not shrink")
	}

	denied, _ = s.IsDenied(ctx, "t1", denylist.KindJTI, "u1", now)
	if denied {
		t.Fatal("kind must be part of the deny key")
	}
}

func TestDenyListExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	e := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  "t1",
		Kind:      denylist.KindJTI,
		Value:     "jti-1",
		ExpiresAt: now.Add(time.Minute),
	}
	_ = s.UpsertEntry(ctx, e)

	denied, _ := s.IsDenied(ctx, "t1", denylist.KindJTI, "jti-1", now)
	if !denied {
		t.Fatal("expected denied before expiry")
	}
	denied, _ = s.IsDenied(ctx, "t1", denylist.KindJTI, "jti-1", now.Add(2*time.Minute))
	if denied {
		t.Fatal("expected allowed after expiry")
	}

	purged, err := s.PurgeExpiredEntries(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
}

func TestAuditEntries(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	e := &audit.Entry{
		ID:            id.NewAuditID(),
		TenantID:      "t1",
		Operation:     audit.OpRevokeAll,
		UserID:        "u1",
		Reason:        "offboarding",
		RefreshTokens: 2,
		Clients:       1,
		APIKeys:       3,
		CreatedAt:     now,
	}
	if err := s.CreateAuditEntry(ctx, e); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListAuditEntries(ctx, &audit.QueryFilter{TenantID: "t1", Operation: audit.OpRevokeAll})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].APIKeys != 3 {
		t.Fatalf("unexpected entries: %+v", list)
	}

	list, _ = s.ListAuditEntries(ctx, &audit.QueryFilter{Operation: audit.OpRecalculate})
	if len(list) != 0 {
		t.Fatal("expected no recalculate entries")
	}

	purged, err := s.PurgeAuditEntries(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 5; i++ {
		_ = s.CreateClaim(ctx, &claim.Claim{ID: id.NewClaimID(), TenantID: "t1", Name: "c"})
	}

	list, _ := s.ListClaims(ctx, &claim.ListFilter{TenantID: "t1", Limit: 2})
	if len(list) != 2 {
		t.Fatalf("expected 2, got %d", len(list))
	}
	list, _ = s.ListClaims(ctx, &claim.ListFilter{TenantID: "t1", Offset: 4})
	if len(list) != 1 {
		t.Fatalf("expected 1, got %d", len(list))
	}
	list, _ = s.ListClaims(ctx, &claim.ListFilter{TenantID: "t1", Offset: 10})
	if len(list) != 0 {
		t.Fatalf("expected 0, got %d", len(list))
	}
}
