package keysmith

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/keysmith/apikey"
	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/denylist"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/refreshtoken"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
	"github.com/xraph/keysmith/store/memory"
)

func seedRefreshToken(t *testing.T, s *memory.Store, userID, jti string, status refreshtoken.Status) *refreshtoken.RefreshToken {
	t.Helper()
	tok := &refreshtoken.RefreshToken{
		ID:        id.NewRefreshTokenID(),
		TenantID:  "t1",
		UserID:    userID,
		JTI:       jti,
		Status:    status,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		Version:   1,
	}
	if err := s.CreateRefreshToken(context.Background(), tok); err != nil {
		t.Fatal(err)
	}
	return tok
}

func seedAPIKey(t *testing.T, s *memory.Store, clientID id.ServiceClientID, status apikey.Status) *apikey.APIKey {
	t.Helper()
	k := &apikey.APIKey{
		ID:       id.NewAPIKeyID(),
		ClientID: clientID,
		Name:     "key",
		Status:   status,
		Version:  1,
	}
	if err := s.CreateAPIKey(context.Background(), k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestRevokeAllCascade(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	seedRefreshToken(t, s, "alice", "jti-1", refreshtoken.StatusActive)
	seedRefreshToken(t, s, "alice", "jti-2", refreshtoken.StatusRevoked)

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "bot"},
		map[id.ClaimID]claim.Level{expense.ID: 2},
	)
	if err != nil || client == nil {
		t.Fatalf("delegation failed: %v", err)
	}
	seedAPIKey(t, s, client.ID, apikey.StatusActive)
	seedAPIKey(t, s, client.ID, apikey.StatusRevoked)

	summary, err := eng.RevokeAllUserTokens(ctx, "alice", "offboarded")
	if err != nil {
		t.Fatal(err)
	}
	if summary.RefreshTokens != 1 {
		t.Fatalf("expected 1 refresh token revoked, got %d", summary.RefreshTokens)
	}
	if summary.Clients != 1 {
		t.Fatalf("expected 1 client revoked, got %d", summary.Clients)
	}
	if summary.APIKeys != 1 {
		t.Fatalf("expected 1 api key revoked, got %d", summary.APIKeys)
	}
	if summary.Skipped != 0 {
		t.Fatalf("expected 0 skipped, got %d", summary.Skipped)
	}

	got, err := s.GetClient(ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive() || got.RevokedReason != "offboarded" {
		t.Fatalf("client not revoked: %+v", got)
	}
	rows, _ := s.ListClientClaims(ctx, client.ID)
	if len(rows) != 0 {
		t.Fatal("delegated claim rows should be removed")
	}

	revoked, err := eng.IsUserRevoked(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected alice denied")
	}

	entries, err := s.ListAuditEntries(ctx, &audit.QueryFilter{TenantID: "t1", Operation: audit.OpRevokeAll})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RefreshTokens != 1 || entries[0].Clients != 1 {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}

func TestRevokeAllIdempotent(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	seedCreator(t, s, "alice")
	seedRefreshToken(t, s, "alice", "jti-1", refreshtoken.StatusActive)

	if _, err := eng.RevokeAllUserTokens(ctx, "alice", "first"); err != nil {
		t.Fatal(err)
	}
	summary, err := eng.RevokeAllUserTokens(ctx, "alice", "second")
	if err != nil {
		t.Fatal(err)
	}
	if summary.RefreshTokens != 0 || summary.Clients != 0 || summary.APIKeys != 0 {
		t.Fatalf("second cascade must find nothing to do, got %+v", summary)
	}

	entries, _ := s.ListEntries(ctx, &denylist.ListFilter{TenantID: "t1", Kind: denylist.KindUser})
	if len(entries) != 1 {
		t.Fatalf("deny registration must be idempotent, got %d entries", len(entries))
	}
}

// conflictStore simulates a concurrent writer winning every refresh token
// update.
type conflictStore struct {
	*memory.Store
}

func (c *conflictStore) UpdateRefreshToken(_ context.Context, _ *refreshtoken.RefreshToken) (bool, error) {
	return false, nil
}

func TestRevokeAllCountsConflictsAsSkipped(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	s := memory.New()
	cs := &conflictStore{Store: s}
	eng, err := NewEngine(WithStore(cs))
	if err != nil {
		t.Fatal(err)
	}
	seedRefreshToken(t, s, "alice", "jti-1", refreshtoken.StatusActive)

	summary, err := eng.RevokeAllUserTokens(ctx, "alice", "offboarded")
	if err != nil {
		t.Fatal(err)
	}
	if summary.RefreshTokens != 0 || summary.Skipped != 1 {
		t.Fatalf("conflict must count as skipped, got %+v", summary)
	}

	// The deny-list entry is still written: the user stays blocked even
	// when row revocations lose the race.
	revoked, err := eng.IsUserRevoked(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected alice denied despite conflicts")
	}
}

// clientConflictStore simulates a concurrent cascade winning every service
// client update.
type clientConflictStore struct {
	*memory.Store
}

func (c *clientConflictStore) UpdateClient(_ context.Context, _ *serviceclient.ServiceClient) (bool, error) {
	return false, nil
}

func TestRevokeAllClientConflictLeavesDownstreamRows(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	s := memory.New()
	eng, err := NewEngine(WithStore(&clientConflictStore{Store: s}))
	if err != nil {
		t.Fatal(err)
	}

	expense := seedClaim(t, s, "approve_expense")
	client := &serviceclient.ServiceClient{
		ID:            id.NewServiceClientID(),
		TenantID:      "t1",
		CreatorUserID: "alice",
		Name:          "bot",
		Status:        serviceclient.StatusActive,
		Version:       1,
	}
	if err := s.CreateClient(ctx, client); err != nil {
		t.Fatal(err)
	}
	row := &serviceclient.ClientClaim{
		ID:       id.NewClientClaimID(),
		ClientID: client.ID,
		ClaimID:  expense.ID,
		Level:    2,
		Version:  1,
	}
	if err := s.CreateClientClaim(ctx, row); err != nil {
		t.Fatal(err)
	}
	key := seedAPIKey(t, s, client.ID, apikey.StatusActive)

	summary, err := eng.RevokeAllUserTokens(ctx, "alice", "offboarded")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Clients != 0 || summary.APIKeys != 0 || summary.Skipped != 1 {
		t.Fatalf("losing the client must skip it whole, got %+v", summary)
	}

	// The winning cascade owns the client's downstream rows; this one must
	// not have touched them.
	gotKey, err := s.GetAPIKey(ctx, key.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !gotKey.IsActive() {
		t.Fatal("api key must stay active when the client update loses")
	}
	rows, err := s.ListClientClaims(ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("claim rows must stay when the client update loses, got %d", len(rows))
	}
}

func TestRecalculateNoChange(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "bot"},
		map[id.ClaimID]claim.Level{expense.ID: 2},
	)
	if err != nil || client == nil {
		t.Fatalf("delegation failed: %v", err)
	}

	changes, err := eng.RecalculateClientClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if changes != nil {
		t.Fatalf("expected nil change set, got %+v", changes)
	}

	got, _ := s.GetClient(ctx, client.ID)
	if got.Version != 1 {
		t.Fatalf("untouched client must keep its version, got %d", got.Version)
	}
}

func TestRecalculateRatchetsDown(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	r := seedRole(t, s, "approver", &role.Grant{ClaimID: expense.ID, Level: 3})
	assignRole(t, s, "alice", r.ID)

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "bot"},
		map[id.ClaimID]claim.Level{expense.ID: 3},
	)
	if err != nil || client == nil {
		t.Fatalf("delegation failed: %v", err)
	}

	// The creator's claim shrinks.
	if err := s.SetRoleGrants(ctx, r.ID, []*role.Grant{{ClaimID: expense.ID, Level: 1}}); err != nil {
		t.Fatal(err)
	}

	changes, err := eng.RecalculateClientClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if changes == nil || len(changes.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	ch := changes.Changes[0]
	if ch.Old != 3 || ch.New != 1 || ch.Claim != "approve_expense" {
		t.Fatalf("unexpected change: %+v", ch)
	}

	rows, _ := s.ListClientClaims(ctx, client.ID)
	if len(rows) != 1 || rows[0].Level != 1 {
		t.Fatalf("rows not replaced: %+v", rows)
	}

	// The creator's claim grows back; delegated levels never follow it up.
	if err := s.SetRoleGrants(ctx, r.ID, []*role.Grant{{ClaimID: expense.ID, Level: 5}}); err != nil {
		t.Fatal(err)
	}
	changes, err = eng.RecalculateClientClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if changes != nil {
		t.Fatalf("ratchet must never raise a delegated level, got %+v", changes)
	}
}

func TestRecalculateRemovedClaimDenies(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "bot"},
		map[id.ClaimID]claim.Level{expense.ID: 2},
	)
	if err != nil || client == nil {
		t.Fatalf("delegation failed: %v", err)
	}

	// The claim disappears from the catalog entirely.
	if err := s.DeleteClaim(ctx, expense.ID); err != nil {
		t.Fatal(err)
	}

	changes, err := eng.RecalculateClientClaims(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if changes == nil || len(changes.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	if !changes.Changes[0].New.IsDenied() {
		t.Fatalf("unresolvable claim must deny, got %+v", changes.Changes[0])
	}
}

func TestRevokeRefreshTokenSingle(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	tok := seedRefreshToken(t, s, "alice", "jti-1", refreshtoken.StatusActive)

	ok, err := eng.RevokeRefreshToken(ctx, tok.ID, "compromised")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected revocation to apply")
	}

	revoked, err := eng.IsTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("expected jti denied")
	}

	// Already revoked: no-op.
	ok, err = eng.RevokeRefreshToken(ctx, tok.ID, "again")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no-op on second revocation")
	}
}

func TestCascadeInvalidatesCache(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	fc := newFakeCache()
	eng, s := newTestEngine(t, WithCache(fc))
	seedCreator(t, s, "alice")

	if _, err := eng.ResolveUserClaims(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fc.Get(ctx, "t1", "alice"); !ok {
		t.Fatal("expected resolution cached")
	}

	if _, err := eng.RevokeAllUserTokens(ctx, "alice", "offboarded"); err != nil {
		t.Fatal(err)
	}
	if _, ok := fc.Get(ctx, "t1", "alice"); ok {
		t.Fatal("expected cache invalidated by the cascade")
	}
	if len(fc.invalidated) == 0 {
		t.Fatal("expected InvalidateUser call")
	}
}
