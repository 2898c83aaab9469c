package claim

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for the claim catalog.
type Store interface {
	// CreateClaim persists a new catalog claim.
	CreateClaim(ctx context.Context, c *Claim) error

	// GetClaim retrieves a claim by ID.
	GetClaim(ctx context.Context, claimID id.ClaimID) (*Claim, error)

	// GetClaimByName retrieves a claim by tenant and name.
	GetClaimByName(ctx context.Context, tenantID, name string) (*Claim, error)

	// ListClaims returns claims matching the filter.
	ListClaims(ctx context.Context, filter *ListFilter) ([]*Claim, error)

	// DeleteClaim removes a claim by ID.
	DeleteClaim(ctx context.Context, claimID id.ClaimID) error
}
