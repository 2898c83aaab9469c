// Package claim defines the claim catalog: the named permission dimensions
// a tenant's roles can grant, and the ordered Level values those grants take.
package claim

import (
	"time"

	"github.com/xraph/keysmith/id"
)

// Claim is a catalog entry naming a single permission dimension
// (e.g. "approve_expense"). Catalog entries are created administratively
// and are read-only to the resolution and cascade paths.
type Claim struct {
	ID          id.ClaimID `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing catalog claims.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
