package keysmith

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/plugin"
	"github.com/xraph/keysmith/store"
)

// Engine is the central authorization engine. It coordinates claim
// resolution, ceiling validation, and the revocation cascade, manages the
// store, and fires extension hooks.
type Engine struct {
	store    store.Store
	resolver Resolver
	cache    Cache
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
}

// NewEngine creates a new Keysmith engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("keysmith: store is required")
	}
	if e.resolver == nil {
		e.resolver = DefaultResolver(e.config.MaxHierarchyDepth)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ResolveUserClaims computes the user's effective claims: a total map over
// the tenant's catalog, defaulting to Denied. This is the hot path.
func (e *Engine) ResolveUserClaims(ctx context.Context, userID string) (map[string]claim.Level, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return nil, ErrTenantRequired
	}

	cacheable := e.cache != nil && e.config.CacheTTL > 0
	if cacheable {
		if cached, ok := e.cache.Get(ctx, scope.tenantID, userID); ok {
			return cached, nil
		}
	}

	claims, err := e.resolver.ResolveUserClaims(ctx, e.store, scope.tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("keysmith resolve: %w", err)
	}

	if cacheable {
		e.cache.Set(ctx, scope.tenantID, userID, claims)
	}
	if e.plugins != nil {
		e.plugins.EmitClaimsResolved(ctx, scope.tenantID, userID, claims)
	}
	return claims, nil
}

// writeAudit records a cascade audit entry. Audit failures are logged and
// never fail the operation they describe.
func (e *Engine) writeAudit(ctx context.Context, entry *audit.Entry) {
	if err := e.store.CreateAuditEntry(ctx, entry); err != nil {
		e.logger.Warn("audit write failed",
			slog.String("operation", string(entry.Operation)),
			slog.String("user", entry.UserID),
			slog.String("error", err.Error()),
		)
	}
}
