// Package serviceclient defines the ServiceClient entity (a machine
// identity delegated a subset of its creator's permissions) and the
// ClientClaim rows that record the delegated grants.
package serviceclient

import (
	"time"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
)

// Status is the service client lifecycle state. Transitions are one-way:
// active → revoked.
type Status string

const (
	// StatusActive means the client may authenticate and act.
	StatusActive Status = "active"

	// StatusRevoked means the client has been permanently disabled.
	StatusRevoked Status = "revoked"
)

// ServiceClient is a machine identity created by a user. Its delegated
// claims must never exceed the creator's own resolved claims; the cascade
// engine re-derives them whenever the creator's claims shrink.
type ServiceClient struct {
	ID            id.ServiceClientID `json:"id" db:"id"`
	TenantID      string             `json:"tenant_id" db:"tenant_id"`
	CreatorUserID string             `json:"creator_user_id" db:"creator_user_id"`
	Name          string             `json:"name" db:"name"`
	Status        Status             `json:"status" db:"status"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt     *time.Time         `json:"revoked_at,omitempty" db:"revoked_at"`
	RevokedReason string             `json:"revoked_reason,omitempty" db:"revoked_reason"`
	Version       int64              `json:"version" db:"version"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the client is usable.
func (c *ServiceClient) IsActive() bool { return c.Status == StatusActive }

// Revoke transitions the client to revoked at the given time.
// Calling it on an already revoked client is a no-op.
func (c *ServiceClient) Revoke(at time.Time, reason string) {
	if c.Status == StatusRevoked {
		return
	}
	c.Status = StatusRevoked
	c.RevokedAt = &at
	c.RevokedReason = reason
}

// ClientClaim is one delegated grant: the level a service client holds for
// a single catalog claim. Rows are established at delegation time and
// replaced wholesale by the recalculation pass, never patched in place.
type ClientClaim struct {
	ID        id.ClientClaimID   `json:"id" db:"id"`
	ClientID  id.ServiceClientID `json:"client_id" db:"client_id"`
	ClaimID   id.ClaimID         `json:"claim_id" db:"claim_id"`
	Level     claim.Level        `json:"level" db:"level"`
	Version   int64              `json:"version" db:"version"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing service clients.
type ListFilter struct {
	TenantID      string `json:"tenant_id,omitempty"`
	CreatorUserID string `json:"creator_user_id,omitempty"`
	Status        Status `json:"status,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}
