// Package role defines the Role entity, its claim grants, and the
// multi-parent role hierarchy.
package role

import (
	"time"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
)

// Role represents a named bundle of claim grants that can be assigned
// to users. Roles may inherit from multiple parent roles.
type Role struct {
	ID          id.RoleID `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description,omitempty" db:"description"`
	IsSystem    bool      `json:"is_system" db:"is_system"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Grant is a role's stored value for one catalog claim.
//
// Defer marks the row as a placeholder meaning "resolve this claim from
// the role's ancestors"; a deferred row's Level carries no grant of its
// own. A non-deferred Grant is a concrete override: during resolution it
// beats whatever the role's ancestors would contribute, even when the
// ancestors are more permissive.
type Grant struct {
	RoleID  id.RoleID   `json:"role_id" db:"role_id"`
	ClaimID id.ClaimID  `json:"claim_id" db:"claim_id"`
	Level   claim.Level `json:"level" db:"level"`
	Defer   bool        `json:"defer" db:"defer_to_parent"`
}

// HierarchyEdge is a directed child→parent edge in the role hierarchy.
// A role may appear as the child of any number of edges.
type HierarchyEdge struct {
	RoleID   id.RoleID `json:"role_id" db:"role_id"`
	ParentID id.RoleID `json:"parent_id" db:"parent_id"`
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	IsSystem *bool  `json:"is_system,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
