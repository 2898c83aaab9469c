package refreshtoken

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for refresh tokens.
//
// UpdateRefreshToken uses optimistic concurrency: false means the stored
// row's version no longer matches the caller's copy.
type Store interface {
	// CreateRefreshToken persists a new refresh token.
	CreateRefreshToken(ctx context.Context, t *RefreshToken) error

	// GetRefreshToken retrieves a refresh token by ID.
	GetRefreshToken(ctx context.Context, tokenID id.RefreshTokenID) (*RefreshToken, error)

	// ListUserRefreshTokens returns all refresh tokens issued to a user.
	ListUserRefreshTokens(ctx context.Context, tenantID, userID string) ([]*RefreshToken, error)

	// UpdateRefreshToken persists changes to a token if the stored version
	// still matches t.Version. Returns false on a version conflict.
	UpdateRefreshToken(ctx context.Context, t *RefreshToken) (bool, error)
}
