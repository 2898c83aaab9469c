package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/serviceclient"
)

// Named entry types pair a hook with the plugin name for logging.

type claimsResolvedEntry struct {
	name string
	hook ClaimsResolved
}
type ceilingDeniedEntry struct {
	name string
	hook CeilingDenied
}
type clientDelegatedEntry struct {
	name string
	hook ClientDelegated
}
type revocationCascadeEntry struct {
	name string
	hook RevocationCascade
}
type claimsRecalculatedEntry struct {
	name string
	hook ClaimsRecalculated
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	claimsResolved     []claimsResolvedEntry
	ceilingDenied      []ceilingDeniedEntry
	clientDelegated    []clientDelegatedEntry
	revocationCascade  []revocationCascadeEntry
	claimsRecalculated []claimsRecalculatedEntry
	shutdown           []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(ClaimsResolved); ok {
		r.claimsResolved = append(r.claimsResolved, claimsResolvedEntry{name, h})
	}
	if h, ok := p.(CeilingDenied); ok {
		r.ceilingDenied = append(r.ceilingDenied, ceilingDeniedEntry{name, h})
	}
	if h, ok := p.(ClientDelegated); ok {
		r.clientDelegated = append(r.clientDelegated, clientDelegatedEntry{name, h})
	}
	if h, ok := p.(RevocationCascade); ok {
		r.revocationCascade = append(r.revocationCascade, revocationCascadeEntry{name, h})
	}
	if h, ok := p.(ClaimsRecalculated); ok {
		r.claimsRecalculated = append(r.claimsRecalculated, claimsRecalculatedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitClaimsResolved notifies all plugins that implement ClaimsResolved.
func (r *Registry) EmitClaimsResolved(ctx context.Context, tenantID, userID string, claims map[string]claim.Level) {
	for _, e := range r.claimsResolved {
		if err := e.hook.OnClaimsResolved(ctx, tenantID, userID, claims); err != nil {
			r.logHookError("OnClaimsResolved", e.name, err)
		}
	}
}

// EmitCeilingDenied notifies all plugins that implement CeilingDenied.
func (r *Registry) EmitCeilingDenied(ctx context.Context, tenantID, creatorUserID string, requested map[id.ClaimID]claim.Level) {
	for _, e := range r.ceilingDenied {
		if err := e.hook.OnCeilingDenied(ctx, tenantID, creatorUserID, requested); err != nil {
			r.logHookError("OnCeilingDenied", e.name, err)
		}
	}
}

// EmitClientDelegated notifies all plugins that implement ClientDelegated.
func (r *Registry) EmitClientDelegated(ctx context.Context, c *serviceclient.ServiceClient) {
	for _, e := range r.clientDelegated {
		if err := e.hook.OnClientDelegated(ctx, c); err != nil {
			r.logHookError("OnClientDelegated", e.name, err)
		}
	}
}

// EmitRevocationCascade notifies all plugins that implement RevocationCascade.
func (r *Registry) EmitRevocationCascade(ctx context.Context, tenantID, userID string, summary any) {
	for _, e := range r.revocationCascade {
		if err := e.hook.OnRevocationCascade(ctx, tenantID, userID, summary); err != nil {
			r.logHookError("OnRevocationCascade", e.name, err)
		}
	}
}

// EmitClaimsRecalculated notifies all plugins that implement ClaimsRecalculated.
func (r *Registry) EmitClaimsRecalculated(ctx context.Context, tenantID, userID string, changes any) {
	for _, e := range r.claimsRecalculated {
		if err := e.hook.OnClaimsRecalculated(ctx, tenantID, userID, changes); err != nil {
			r.logHookError("OnClaimsRecalculated", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
