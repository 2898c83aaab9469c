package keysmith

import (
	"context"
	"fmt"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/store"
)

// Resolver computes a user's effective claims: a total map over the tenant's
// catalog, defaulting to Denied.
type Resolver interface {
	ResolveUserClaims(ctx context.Context, st store.Store, tenantID, userID string) (map[string]claim.Level, error)
}

// DefaultResolver returns a hierarchy-walking resolver with the given max
// depth.
func DefaultResolver(maxDepth int) Resolver {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &hierarchyResolver{maxDepth: maxDepth}
}

type hierarchyResolver struct {
	maxDepth int
}

// ResolveUserClaims resolves each of the user's roles against the hierarchy,
// then merges across roles: a claim held by more than one role takes the
// minimum of their levels; a role silent on a claim does not participate in
// that claim's merge. Catalog claims no role holds stay Denied, as does
// everything for a user with no roles.
func (r *hierarchyResolver) ResolveUserClaims(ctx context.Context, st store.Store, tenantID, userID string) (map[string]claim.Level, error) {
	catalog, err := st.ListClaims(ctx, &claim.ListFilter{TenantID: tenantID})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	names := make(map[string]string, len(catalog))
	result := make(map[string]claim.Level, len(catalog))
	for _, c := range catalog {
		names[c.ID.String()] = c.Name
		result[c.Name] = claim.Denied
	}

	assignments, err := st.ListUserAssignments(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	if len(assignments) == 0 {
		return result, nil
	}

	edges, err := st.ListHierarchy(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list hierarchy: %w", err)
	}
	parents := make(map[string][]id.RoleID, len(edges))
	for _, e := range edges {
		parents[e.RoleID.String()] = append(parents[e.RoleID.String()], e.ParentID)
	}

	w := &roleWalker{
		store:    st,
		parents:  parents,
		maxDepth: r.maxDepth,
		memo:     make(map[string]map[string]claim.Level),
		onPath:   make(map[string]struct{}),
	}

	merged := make(map[string]claim.Level, len(result))
	for _, a := range assignments {
		levels, err := w.resolve(ctx, a.RoleID, 0)
		if err != nil {
			return nil, err
		}
		for cid, lvl := range levels {
			name, known := names[cid]
			if !known {
				continue
			}
			if cur, ok := merged[name]; ok {
				merged[name] = claim.Min(cur, lvl)
				continue
			}
			merged[name] = lvl
		}
	}
	for name, lvl := range merged {
		result[name] = lvl
	}
	return result, nil
}

// roleWalker resolves a single role's claims against the hierarchy.
// Results are memoized per role; the onPath set truncates cycles so a
// revisited role contributes nothing.
type roleWalker struct {
	store    role.Store
	parents  map[string][]id.RoleID
	maxDepth int
	memo     map[string]map[string]claim.Level
	onPath   map[string]struct{}
}

// resolve returns the role's resolved levels keyed by claim ID. Ancestors
// contribute first, merged with Min where more than one parent holds a
// claim. The role's own rows are then applied: a concrete grant overrides
// whatever the ancestors resolved, even when they are more permissive; a
// deferred row keeps the ancestor value, or Denied when no ancestor holds
// the claim.
func (w *roleWalker) resolve(ctx context.Context, roleID id.RoleID, depth int) (map[string]claim.Level, error) {
	key := roleID.String()
	if m, ok := w.memo[key]; ok {
		return m, nil
	}
	if _, on := w.onPath[key]; on {
		return nil, nil
	}
	if depth > w.maxDepth {
		return nil, nil
	}
	w.onPath[key] = struct{}{}
	defer delete(w.onPath, key)

	merged := make(map[string]claim.Level)
	for _, pid := range w.parents[key] {
		pm, err := w.resolve(ctx, pid, depth+1)
		if err != nil {
			return nil, err
		}
		for cid, lvl := range pm {
			if cur, ok := merged[cid]; ok {
				merged[cid] = claim.Min(cur, lvl)
			} else {
				merged[cid] = lvl
			}
		}
	}

	grants, err := w.store.ListRoleGrants(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("list grants for role %s: %w", roleID, err)
	}
	for _, g := range grants {
		cid := g.ClaimID.String()
		if g.Defer {
			if _, ok := merged[cid]; !ok {
				merged[cid] = claim.Denied
			}
			continue
		}
		merged[cid] = g.Level
	}

	w.memo[key] = merged
	return merged, nil
}
