package keysmith

import "errors"

var (
	// ErrClaimNotFound is returned when a catalog claim cannot be found.
	ErrClaimNotFound = errors.New("keysmith: claim not found")

	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = errors.New("keysmith: role not found")

	// ErrAssignmentNotFound is returned when an assignment cannot be found.
	ErrAssignmentNotFound = errors.New("keysmith: assignment not found")

	// ErrClientNotFound is returned when a service client cannot be found.
	ErrClientNotFound = errors.New("keysmith: service client not found")

	// ErrClientRevoked is returned when an operation targets a revoked client.
	ErrClientRevoked = errors.New("keysmith: service client is revoked")

	// ErrAPIKeyNotFound is returned when an API key cannot be found.
	ErrAPIKeyNotFound = errors.New("keysmith: api key not found")

	// ErrTokenNotFound is returned when a refresh token cannot be found.
	ErrTokenNotFound = errors.New("keysmith: refresh token not found")

	// ErrTenantRequired is returned when no tenant scope can be derived
	// from the context.
	ErrTenantRequired = errors.New("keysmith: tenant scope required")
)
