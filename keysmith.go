// Package keysmith provides the authorization core of a delegated-credential
// platform: hierarchical claim resolution, permission-ceiling enforcement for
// service clients, and cascading revocation.
//
// Users hold roles; roles grant leveled claims and may inherit from multiple
// parent roles. A user may delegate a subset of their resolved claims to a
// machine identity (a service client), never more (the ceiling). When a
// user's claims shrink or the user is deactivated, the cascade engine
// re-derives or revokes everything downstream of them.
//
//	eng, err := keysmith.NewEngine(
//	    keysmith.WithStore(memStore),
//	)
//	claims, err := eng.ResolveUserClaims(ctx, "user_123")
package keysmith

import (
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
)

// Code classifies a ceiling-validation failure. Validation failures are
// reported through the context message sink, never as errors.
type Code string

const (
	// CodeClaimNotFound means a requested claim ID is not in the catalog.
	CodeClaimNotFound Code = "claim_not_found"

	// CodeCreatorLacksClaim means the creator resolves Denied for the claim.
	CodeCreatorLacksClaim Code = "creator_lacks_claim"

	// CodeExceedsCreatorLevel means the requested level is above the
	// creator's resolved level.
	CodeExceedsCreatorLevel Code = "exceeds_creator_level"
)

// Message is one ceiling-validation failure.
type Message struct {
	Code    Code        `json:"code"`
	ClaimID id.ClaimID  `json:"claim_id"`
	Claim   string      `json:"claim,omitempty"`
	Level   claim.Level `json:"level,omitempty"`
	Ceiling claim.Level `json:"ceiling,omitempty"`
}

// RevocationSummary aggregates what a revocation cascade touched.
// Skipped counts rows another writer revoked first (version conflicts);
// those rows were already handled and are not failures.
type RevocationSummary struct {
	RefreshTokens int `json:"refresh_tokens"`
	Clients       int `json:"clients"`
	APIKeys       int `json:"api_keys"`
	Skipped       int `json:"skipped"`
}

// ClaimChange records one delegated grant reduced by a recalculation pass.
type ClaimChange struct {
	ClientID id.ServiceClientID `json:"client_id"`
	ClaimID  id.ClaimID         `json:"claim_id"`
	Claim    string             `json:"claim"`
	Old      claim.Level        `json:"old"`
	New      claim.Level        `json:"new"`
}

// ClaimChangeSet is the outcome of a recalculation pass that changed
// something. A pass that changes nothing returns nil instead.
type ClaimChangeSet struct {
	UserID  string        `json:"user_id"`
	Clients int           `json:"clients"`
	Changes []ClaimChange `json:"changes"`
}
