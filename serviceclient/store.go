package serviceclient

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for service clients and their
// delegated claim rows.
//
// UpdateClient uses optimistic concurrency: it succeeds only when the
// stored row still carries the caller's Version, and reports the outcome
// as a bool rather than an error. A false return means another writer got
// there first.
type Store interface {
	// CreateClient persists a new service client.
	CreateClient(ctx context.Context, c *ServiceClient) error

	// GetClient retrieves a service client by ID.
	GetClient(ctx context.Context, clientID id.ServiceClientID) (*ServiceClient, error)

	// ListClientsByCreator returns all service clients created by a user.
	ListClientsByCreator(ctx context.Context, tenantID, creatorUserID string) ([]*ServiceClient, error)

	// ListClients returns service clients matching the filter.
	ListClients(ctx context.Context, filter *ListFilter) ([]*ServiceClient, error)

	// UpdateClient persists changes to a client if the stored version still
	// matches c.Version. Returns false on a version conflict.
	UpdateClient(ctx context.Context, c *ServiceClient) (bool, error)

	// CreateClientClaim persists one delegated claim row.
	CreateClientClaim(ctx context.Context, cc *ClientClaim) error

	// ListClientClaims returns all delegated claim rows for a client.
	ListClientClaims(ctx context.Context, clientID id.ServiceClientID) ([]*ClientClaim, error)

	// DeleteClientClaims removes all delegated claim rows for a client.
	DeleteClientClaims(ctx context.Context, clientID id.ServiceClientID) error
}
