// Package plugin defines the plugin system for Keysmith.
// Plugins are notified of lifecycle events (claims resolved, client
// delegated, cascade performed, etc.) and can react: logging, metrics,
// tracing, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/serviceclient"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution hooks
// ──────────────────────────────────────────────────

// ClaimsResolved is called after a user's claims are resolved (cache misses
// only).
type ClaimsResolved interface {
	OnClaimsResolved(ctx context.Context, tenantID, userID string, claims map[string]claim.Level) error
}

// ──────────────────────────────────────────────────
// Delegation hooks
// ──────────────────────────────────────────────────

// CeilingDenied is called when a delegation request fails ceiling
// validation.
type CeilingDenied interface {
	OnCeilingDenied(ctx context.Context, tenantID, creatorUserID string, requested map[id.ClaimID]claim.Level) error
}

// ClientDelegated is called after a service client is created with its
// delegated grants.
type ClientDelegated interface {
	OnClientDelegated(ctx context.Context, c *serviceclient.ServiceClient) error
}

// ──────────────────────────────────────────────────
// Cascade hooks
// ──────────────────────────────────────────────────

// RevocationCascade is called after a full revocation cascade completes.
// The summary parameter is *keysmith.RevocationSummary (passed as any to
// avoid import cycle).
type RevocationCascade interface {
	OnRevocationCascade(ctx context.Context, tenantID, userID string, summary any) error
}

// ClaimsRecalculated is called after a recalculation pass that changed at
// least one delegated grant. The changes parameter is
// *keysmith.ClaimChangeSet (passed as any to avoid import cycle).
type ClaimsRecalculated interface {
	OnClaimsRecalculated(ctx context.Context, tenantID, userID string, changes any) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
