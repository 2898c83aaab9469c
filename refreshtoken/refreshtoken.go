// Package refreshtoken defines the RefreshToken credential bound to a user.
package refreshtoken

import (
	"time"

	"github.com/xraph/keysmith/id"
)

// Status is the refresh token lifecycle state. Transitions are one-way:
// active → revoked.
type Status string

const (
	// StatusActive means the token may be exchanged for access tokens.
	StatusActive Status = "active"

	// StatusRevoked means the token has been permanently disabled.
	StatusRevoked Status = "revoked"
)

// RefreshToken is a long-lived credential issued to a user session. The
// cascade engine revokes every active token when the user is deactivated.
type RefreshToken struct {
	ID        id.RefreshTokenID `json:"id" db:"id"`
	TenantID  string            `json:"tenant_id" db:"tenant_id"`
	UserID    string            `json:"user_id" db:"user_id"`
	JTI       string            `json:"jti" db:"jti"`
	Status    Status            `json:"status" db:"status"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time        `json:"revoked_at,omitempty" db:"revoked_at"`
	Version   int64             `json:"version" db:"version"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the token is usable.
func (t *RefreshToken) IsActive() bool { return t.Status == StatusActive }

// Revoke transitions the token to revoked at the given time.
// Calling it on an already revoked token is a no-op.
func (t *RefreshToken) Revoke(at time.Time) {
	if t.Status == StatusRevoked {
		return
	}
	t.Status = StatusRevoked
	t.RevokedAt = &at
}
