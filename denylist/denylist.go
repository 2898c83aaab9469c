// Package denylist defines the block-list consulted on every token use,
// independent of the primary credential stores. It is the authoritative
// fail-safe of the cascade: even when individual row revocations are
// skipped under contention, the deny-list entry blocks the principal.
package denylist

import (
	"time"

	"github.com/xraph/keysmith/id"
)

// Kind is the deny-list entry type.
type Kind string

const (
	// KindJTI blocks a single token by its JWT ID.
	KindJTI Kind = "jti"

	// KindUser blocks every credential of a user. An entry with an
	// expiration years out is the durable marker of "permanently
	// deactivated".
	KindUser Kind = "user"
)

// Entry is one deny-list row.
type Entry struct {
	ID        id.DenyListID `json:"id" db:"id"`
	TenantID  string        `json:"tenant_id" db:"tenant_id"`
	Kind      Kind          `json:"kind" db:"kind"`
	Value     string        `json:"value" db:"value"`
	Reason    string        `json:"reason,omitempty" db:"reason"`
	ExpiresAt time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing deny-list entries.
type ListFilter struct {
	TenantID string `json:"tenant_id,omitempty"`
	Kind     Kind   `json:"kind,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
