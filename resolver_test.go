package keysmith

import (
	"context"
	"testing"

	"github.com/xraph/keysmith/role"
)

func TestResolveDefaultDeny(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	seedClaim(t, s, "approve_expense")
	seedClaim(t, s, "view_reports")

	// A user with no roles resolves Denied for the entire catalog.
	claims, err := eng.ResolveUserClaims(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 2 {
		t.Fatalf("resolution must be total over the catalog, got %d entries", len(claims))
	}
	for name, lvl := range claims {
		if !lvl.IsDenied() {
			t.Fatalf("expected %s denied, got %d", name, lvl)
		}
	}
}

func TestResolveSingleRole(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	seedClaim(t, s, "view_reports")
	r := seedRole(t, s, "approver", &role.Grant{ClaimID: expense.ID, Level: 3})
	assignRole(t, s, "u1", r.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected 3, got %d", claims["approve_expense"])
	}
	if !claims["view_reports"].IsDenied() {
		t.Fatalf("ungranted claim must stay denied, got %d", claims["view_reports"])
	}
}

func TestResolveOverrideBeatsInheritance(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	parent := seedRole(t, s, "parent", &role.Grant{ClaimID: expense.ID, Level: 5})
	child := seedRole(t, s, "child", &role.Grant{ClaimID: expense.ID, Level: 2})
	addParent(t, s, child.ID, parent.ID)
	assignRole(t, s, "u1", child.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// The child's concrete grant wins even though the parent is more
	// permissive.
	if claims["approve_expense"] != 2 {
		t.Fatalf("expected override 2, got %d", claims["approve_expense"])
	}
}

func TestResolveDeferToParent(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	parent := seedRole(t, s, "parent", &role.Grant{ClaimID: expense.ID, Level: 4})
	child := seedRole(t, s, "child", &role.Grant{ClaimID: expense.ID, Defer: true, Level: 9})
	addParent(t, s, child.ID, parent.ID)
	assignRole(t, s, "u1", child.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// The deferred row's own Level carries no grant; the parent's 4 applies.
	if claims["approve_expense"] != 4 {
		t.Fatalf("expected 4 from parent, got %d", claims["approve_expense"])
	}
}

func TestResolveDeferWithoutParents(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	orphan := seedRole(t, s, "orphan", &role.Grant{ClaimID: expense.ID, Defer: true, Level: 9})
	assignRole(t, s, "u1", orphan.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !claims["approve_expense"].IsDenied() {
		t.Fatalf("defer with no parents must resolve denied, got %d", claims["approve_expense"])
	}
}

func TestResolveDiamondTakesMin(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	top := seedRole(t, s, "top", &role.Grant{ClaimID: expense.ID, Level: 5})
	left := seedRole(t, s, "left", &role.Grant{ClaimID: expense.ID, Level: 3})
	right := seedRole(t, s, "right")
	bottom := seedRole(t, s, "bottom", &role.Grant{ClaimID: expense.ID, Defer: true})
	addParent(t, s, left.ID, top.ID)
	addParent(t, s, right.ID, top.ID)
	addParent(t, s, bottom.ID, left.ID)
	addParent(t, s, bottom.ID, right.ID)
	assignRole(t, s, "u1", bottom.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// left overrides to 3, right inherits top's 5; the diamond bottom takes
	// the minimum across parents holding the claim.
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected 3, got %d", claims["approve_expense"])
	}
}

func TestResolveMultiRoleIntersection(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	reports := seedClaim(t, s, "view_reports")
	export := seedClaim(t, s, "export_data")
	r1 := seedRole(t, s, "r1",
		&role.Grant{ClaimID: expense.ID, Level: 3},
		&role.Grant{ClaimID: export.ID, Level: 2},
	)
	r2 := seedRole(t, s, "r2",
		&role.Grant{ClaimID: expense.ID, Level: 5},
		&role.Grant{ClaimID: export.ID, Level: 0},
		&role.Grant{ClaimID: reports.ID, Level: 2},
	)
	assignRole(t, s, "u1", r1.ID)
	assignRole(t, s, "u1", r2.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected min 3 across roles, got %d", claims["approve_expense"])
	}
	// r2 holds export_data at the Denied floor; its entry drags the merge down.
	if !claims["export_data"].IsDenied() {
		t.Fatalf("expected denied, got %d", claims["export_data"])
	}
	// Only r2 holds view_reports; r1's silence does not deny it.
	if claims["view_reports"] != 2 {
		t.Fatalf("expected 2, got %d", claims["view_reports"])
	}
}

func TestResolveMultiRoleDisjointGrants(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	reports := seedClaim(t, s, "view_reports")
	r1 := seedRole(t, s, "r1", &role.Grant{ClaimID: expense.ID, Level: 3})
	r2 := seedRole(t, s, "r2", &role.Grant{ClaimID: reports.ID, Level: 2})
	assignRole(t, s, "u1", r1.ID)
	assignRole(t, s, "u1", r2.ID)

	// Roles with disjoint grants merge to the union; adding a narrow role
	// must not wipe a user's unrelated permissions.
	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected 3, got %d", claims["approve_expense"])
	}
	if claims["view_reports"] != 2 {
		t.Fatalf("expected 2, got %d", claims["view_reports"])
	}
}

func TestResolveCycleBounded(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	a := seedRole(t, s, "a", &role.Grant{ClaimID: expense.ID, Level: 2})
	b := seedRole(t, s, "b", &role.Grant{ClaimID: expense.ID, Defer: true})
	addParent(t, s, a.ID, b.ID)
	addParent(t, s, b.ID, a.ID)
	assignRole(t, s, "u1", b.ID)

	// Must terminate; the revisited role contributes nothing.
	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 2 {
		t.Fatalf("expected 2 from a, got %d", claims["approve_expense"])
	}
}

func TestResolveDepthBounded(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t, WithConfig(Config{MaxHierarchyDepth: 2, DenyListTTL: DefaultConfig().DenyListTTL}))

	expense := seedClaim(t, s, "approve_expense")
	deep := seedRole(t, s, "deep", &role.Grant{ClaimID: expense.ID, Level: 5})
	prev := deep
	var leaf *role.Role
	for i := 0; i < 4; i++ {
		r := seedRole(t, s, "mid"+string(rune('a'+i)))
		addParent(t, s, r.ID, prev.ID)
		prev = r
		leaf = r
	}
	assignRole(t, s, "u1", leaf.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// The granting ancestor sits beyond the depth bound.
	if !claims["approve_expense"].IsDenied() {
		t.Fatalf("expected denied beyond max depth, got %d", claims["approve_expense"])
	}
}

func TestResolveIgnoresOtherTenants(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")
	eng, s := newTestEngine(t)

	expense := seedClaim(t, s, "approve_expense")
	r := seedRole(t, s, "approver", &role.Grant{ClaimID: expense.ID, Level: 3})
	assignRole(t, s, "u1", r.ID)

	claims, err := eng.ResolveUserClaims(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if claims["approve_expense"] != 3 {
		t.Fatalf("expected 3 in the seeded tenant, got %d", claims["approve_expense"])
	}

	ctx2 := WithTenant(context.Background(), "t2")
	claims, err = eng.ResolveUserClaims(ctx2, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 0 {
		t.Fatalf("t2 has no catalog, expected empty map, got %d entries", len(claims))
	}
}
