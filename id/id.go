// Package id defines TypeID-based identity types for all Keysmith entities.
//
// Every entity in Keysmith uses a single ID struct with a prefix that
// identifies the entity type. IDs are K-sortable (UUIDv7-based), globally
// unique, and URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Keysmith entity types.
const (
	PrefixClaim         Prefix = "claim"
	PrefixRole          Prefix = "role"
	PrefixAssignment    Prefix = "urole"
	PrefixServiceClient Prefix = "svc"
	PrefixClientClaim   Prefix = "svck"
	PrefixAPIKey        Prefix = "key"
	PrefixRefreshToken  Prefix = "rtk"
	PrefixDenyList      Prefix = "deny"
	PrefixAudit         Prefix = "audit"
)

// ID is the primary identifier type for all Keysmith entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "claim_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// MustParseWithPrefix is like ParseWithPrefix but panics on error.
func MustParseWithPrefix(s string, expected Prefix) ID {
	parsed, err := ParseWithPrefix(s, expected)
	if err != nil {
		panic(fmt.Sprintf("id: must parse with prefix %q: %v", expected, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases per entity
// ──────────────────────────────────────────────────

// ClaimID is a type-safe identifier for catalog claims (prefix: "claim").
type ClaimID = ID

// RoleID is a type-safe identifier for roles (prefix: "role").
type RoleID = ID

// AssignmentID is a type-safe identifier for user-role assignments (prefix: "urole").
type AssignmentID = ID

// ServiceClientID is a type-safe identifier for service clients (prefix: "svc").
type ServiceClientID = ID

// ClientClaimID is a type-safe identifier for delegated claim rows (prefix: "svck").
type ClientClaimID = ID

// APIKeyID is a type-safe identifier for API keys (prefix: "key").
type APIKeyID = ID

// RefreshTokenID is a type-safe identifier for refresh tokens (prefix: "rtk").
type RefreshTokenID = ID

// DenyListID is a type-safe identifier for deny-list entries (prefix: "deny").
type DenyListID = ID

// AuditID is a type-safe identifier for audit entries (prefix: "audit").
type AuditID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewClaimID generates a new unique claim ID.
func NewClaimID() ID { return New(PrefixClaim) }

// NewRoleID generates a new unique role ID.
func NewRoleID() ID { return New(PrefixRole) }

// NewAssignmentID generates a new unique assignment ID.
func NewAssignmentID() ID { return New(PrefixAssignment) }

// NewServiceClientID generates a new unique service client ID.
func NewServiceClientID() ID { return New(PrefixServiceClient) }

// NewClientClaimID generates a new unique client claim ID.
func NewClientClaimID() ID { return New(PrefixClientClaim) }

// NewAPIKeyID generates a new unique API key ID.
func NewAPIKeyID() ID { return New(PrefixAPIKey) }

// NewRefreshTokenID generates a new unique refresh token ID.
func NewRefreshTokenID() ID { return New(PrefixRefreshToken) }

// NewDenyListID generates a new unique deny-list entry ID.
func NewDenyListID() ID { return New(PrefixDenyList) }

// NewAuditID generates a new unique audit entry ID.
func NewAuditID() ID { return New(PrefixAudit) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseClaimID parses a string and validates the "claim" prefix.
func ParseClaimID(s string) (ID, error) { return ParseWithPrefix(s, PrefixClaim) }

// ParseRoleID parses a string and validates the "role" prefix.
func ParseRoleID(s string) (ID, error) { return ParseWithPrefix(s, PrefixRole) }

// ParseAssignmentID parses a string and validates the "urole" prefix.
func ParseAssignmentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAssignment) }

// ParseServiceClientID parses a string and validates the "svc" prefix.
func ParseServiceClientID(s string) (ID, error) { return ParseWithPrefix(s, PrefixServiceClient) }

// ParseClientClaimID parses a string and validates the "svck" prefix.
func ParseClientClaimID(s string) (ID, error) { return ParseWithPrefix(s, PrefixClientClaim) }

// ParseAPIKeyID parses a string and validates the "key" prefix.
func ParseAPIKeyID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAPIKey) }

// ParseRefreshTokenID parses a string and validates the "rtk" prefix.
func ParseRefreshTokenID(s string) (ID, error) { return ParseWithPrefix(s, PrefixRefreshToken) }

// ParseDenyListID parses a string and validates the "deny" prefix.
func ParseDenyListID(s string) (ID, error) { return ParseWithPrefix(s, PrefixDenyList) }

// ParseAuditID parses a string and validates the "audit" prefix.
func ParseAuditID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAudit) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
