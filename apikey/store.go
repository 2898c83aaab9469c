package apikey

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for API keys.
//
// UpdateAPIKey uses optimistic concurrency: false means the stored row's
// version no longer matches the caller's copy.
type Store interface {
	// CreateAPIKey persists a new API key.
	CreateAPIKey(ctx context.Context, k *APIKey) error

	// GetAPIKey retrieves an API key by ID.
	GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*APIKey, error)

	// ListClientAPIKeys returns all API keys issued against a client.
	ListClientAPIKeys(ctx context.Context, clientID id.ServiceClientID) ([]*APIKey, error)

	// UpdateAPIKey persists changes to a key if the stored version still
	// matches k.Version. Returns false on a version conflict.
	UpdateAPIKey(ctx context.Context, k *APIKey) (bool, error)
}
