// Package audit defines the cascade audit log Entry entity. Every
// revocation cascade and ceiling recalculation records one entry so
// operators can answer "who lost what, when, and why".
package audit

import (
	"time"

	"github.com/xraph/keysmith/id"
)

// Operation identifies which engine operation produced an entry.
type Operation string

const (
	// OpRevokeAll is a full credential cascade for a user.
	OpRevokeAll Operation = "revoke_all"

	// OpRecalculate is a ceiling recalculation pass for a user's clients.
	OpRecalculate Operation = "recalculate"
)

// Entry is a single cascade audit record.
type Entry struct {
	ID            id.AuditID     `json:"id" db:"id"`
	TenantID      string         `json:"tenant_id" db:"tenant_id"`
	Operation     Operation      `json:"operation" db:"operation"`
	UserID        string         `json:"user_id" db:"user_id"`
	Reason        string         `json:"reason,omitempty" db:"reason"`
	RefreshTokens int            `json:"refresh_tokens" db:"refresh_tokens"`
	Clients       int            `json:"clients" db:"clients"`
	APIKeys       int            `json:"api_keys" db:"api_keys"`
	ChangedClaims int            `json:"changed_claims" db:"changed_claims"`
	Metadata      map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	TenantID  string     `json:"tenant_id,omitempty"`
	Operation Operation  `json:"operation,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
