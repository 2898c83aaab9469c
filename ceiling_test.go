package keysmith

import (
	"context"
	"testing"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
	"github.com/xraph/keysmith/store/memory"
)

// seedCreator gives the user a role with approve_expense level 3 and leaves
// view_reports in the catalog ungranted.
func seedCreator(t *testing.T, s *memory.Store, userID string) (expense, reports *claim.Claim) {
	t.Helper()
	expense = seedClaim(t, s, "approve_expense")
	reports = seedClaim(t, s, "view_reports")
	r := seedRole(t, s, "approver", &role.Grant{ClaimID: expense.ID, Level: 3})
	assignRole(t, s, userID, r.ID)
	return expense, reports
}

func TestValidateCeilingWithinLimit(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{expense.ID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected valid, got failures: %+v", sink.Items())
	}
	if len(sink.Items()) != 0 {
		t.Fatalf("expected no messages, got %+v", sink.Items())
	}
}

func TestValidateCeilingAtLimit(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	// Equal to the creator's level is allowed; only above fails.
	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{expense.ID: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected level equal to the ceiling to pass")
	}
}

func TestValidateCeilingExceedsLevel(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{expense.ID: 5})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected failure above the ceiling")
	}
	msgs := sink.Items()
	if len(msgs) != 1 || msgs[0].Code != CodeExceedsCreatorLevel {
		t.Fatalf("expected CodeExceedsCreatorLevel, got %+v", msgs)
	}
	if msgs[0].Ceiling != 3 || msgs[0].Level != 5 {
		t.Fatalf("message should carry both levels, got %+v", msgs[0])
	}
}

func TestValidateCeilingCreatorLacksClaim(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	_, reports := seedCreator(t, s, "alice")

	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{reports.ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected failure for a claim the creator resolves denied")
	}
	msgs := sink.Items()
	if len(msgs) != 1 || msgs[0].Code != CodeCreatorLacksClaim {
		t.Fatalf("expected CodeCreatorLacksClaim, got %+v", msgs)
	}
}

func TestValidateCeilingUnknownClaim(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	seedCreator(t, s, "alice")

	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{id.NewClaimID(): 1})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected failure for an unknown claim id")
	}
	msgs := sink.Items()
	if len(msgs) != 1 || msgs[0].Code != CodeClaimNotFound {
		t.Fatalf("expected CodeClaimNotFound, got %+v", msgs)
	}
}

func TestValidateCeilingChecksEveryClaim(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	expense, reports := seedCreator(t, s, "alice")

	ok, err := eng.ValidateCeiling(ctx, "alice", map[id.ClaimID]claim.Level{
		expense.ID:      5, // above ceiling
		reports.ID:      1, // not granted
		id.NewClaimID(): 1, // not in catalog
	})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected failure")
	}
	// Validation does not short-circuit: every requested claim reports.
	if len(sink.Items()) != 3 {
		t.Fatalf("expected 3 messages, got %+v", sink.Items())
	}
}

func TestDelegateClientWithinCeiling(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "expense-bot"},
		map[id.ClaimID]claim.Level{expense.ID: 2},
	)
	if err != nil {
		t.Fatal(err)
	}
	if client == nil {
		t.Fatal("expected client")
	}
	if !client.IsActive() || client.Version != 1 {
		t.Fatalf("unexpected client state: %+v", client)
	}

	rows, err := s.ListClientClaims(ctx, client.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Level != 2 {
		t.Fatalf("unexpected claim rows: %+v", rows)
	}
}

func TestDelegateClientRejected(t *testing.T) {
	sink := &Messages{}
	ctx := WithMessages(WithTenant(context.Background(), "t1"), sink)
	eng, s := newTestEngine(t)
	expense, _ := seedCreator(t, s, "alice")

	client, err := eng.DelegateClient(ctx,
		&serviceclient.ServiceClient{CreatorUserID: "alice", Name: "greedy-bot"},
		map[id.ClaimID]claim.Level{expense.ID: 9},
	)
	if err != nil {
		t.Fatal(err)
	}
	if client != nil {
		t.Fatal("expected nil client on ceiling failure")
	}
	if len(sink.Items()) != 1 {
		t.Fatalf("expected 1 message, got %+v", sink.Items())
	}

	// Nothing persisted.
	clients, err := s.ListClientsByCreator(ctx, "t1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected no clients, got %d", len(clients))
	}
}
