package keysmith

import (
	"context"

	"github.com/xraph/keysmith/claim"
)

// Cache provides caching for resolved claim maps.
type Cache interface {
	// Get returns a cached resolution for the user, if available.
	Get(ctx context.Context, tenantID, userID string) (map[string]claim.Level, bool)

	// Set stores a resolution in the cache.
	Set(ctx context.Context, tenantID, userID string, claims map[string]claim.Level)

	// InvalidateUser removes the cached resolution for a user.
	InvalidateUser(ctx context.Context, tenantID, userID string)

	// InvalidateTenant removes all cached resolutions for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)
}
