package role

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for roles, their claim grants,
// and the role hierarchy.
type Store interface {
	// CreateRole persists a new role.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleBySlug retrieves a role by tenant and slug.
	GetRoleBySlug(ctx context.Context, tenantID, slug string) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role, its grants, and its hierarchy edges.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// ListRoleGrants returns the claim grants stored directly on a role.
	ListRoleGrants(ctx context.Context, roleID id.RoleID) ([]*Grant, error)

	// SetRoleGrants replaces all claim grants for a role.
	SetRoleGrants(ctx context.Context, roleID id.RoleID, grants []*Grant) error

	// ListHierarchy returns every child→parent edge for a tenant.
	ListHierarchy(ctx context.Context, tenantID string) ([]*HierarchyEdge, error)

	// AddHierarchyEdge links a role to a parent role.
	AddHierarchyEdge(ctx context.Context, tenantID string, edge *HierarchyEdge) error

	// RemoveHierarchyEdge unlinks a role from a parent role.
	RemoveHierarchyEdge(ctx context.Context, tenantID string, edge *HierarchyEdge) error
}
