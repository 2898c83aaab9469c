// Package apikey defines the APIKey credential bound to a service client.
package apikey

import (
	"time"

	"github.com/xraph/keysmith/id"
)

// Status is the API key lifecycle state. Transitions are one-way:
// active → revoked.
type Status string

const (
	// StatusActive means the key may authenticate.
	StatusActive Status = "active"

	// StatusRevoked means the key has been permanently disabled.
	StatusRevoked Status = "revoked"
)

// APIKey is a credential issued against a service client. Revoking the
// client revokes every key beneath it.
type APIKey struct {
	ID        id.APIKeyID        `json:"id" db:"id"`
	ClientID  id.ServiceClientID `json:"client_id" db:"client_id"`
	Name      string             `json:"name" db:"name"`
	Status    Status             `json:"status" db:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt *time.Time         `json:"revoked_at,omitempty" db:"revoked_at"`
	Version   int64              `json:"version" db:"version"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the key is usable.
func (k *APIKey) IsActive() bool { return k.Status == StatusActive }

// Revoke transitions the key to revoked at the given time.
// Calling it on an already revoked key is a no-op.
func (k *APIKey) Revoke(at time.Time) {
	if k.Status == StatusRevoked {
		return
	}
	k.Status = StatusRevoked
	k.RevokedAt = &at
}
