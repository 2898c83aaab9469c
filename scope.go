package keysmith

import (
	"context"

	"github.com/xraph/forge"
)

type tenantScope struct {
	tenantID string
}

// scopeFromContext extracts tenant scope from forge.Scope or standalone context.
// Falls back to explicit tenant if Forge scope is not set (standalone mode).
func scopeFromContext(ctx context.Context) tenantScope {
	s, ok := forge.ScopeFrom(ctx)
	if ok {
		return tenantScope{tenantID: s.OrgID()}
	}
	return tenantScope{tenantID: tenantIDFromContext(ctx)}
}
