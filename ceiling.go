package keysmith

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/serviceclient"
)

// ValidateCeiling checks a requested delegation against the creator's
// resolved claims. Every requested claim is checked; each failure appends a
// Message to the context sink (see WithMessages). The return is false when
// any claim failed. Validation failures are not errors; the error return
// covers store and resolution problems only.
func (e *Engine) ValidateCeiling(ctx context.Context, creatorUserID string, requested map[id.ClaimID]claim.Level) (bool, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return false, ErrTenantRequired
	}

	resolved, err := e.ResolveUserClaims(ctx, creatorUserID)
	if err != nil {
		return false, err
	}
	catalog, err := e.store.ListClaims(ctx, &claim.ListFilter{TenantID: scope.tenantID})
	if err != nil {
		return false, fmt.Errorf("keysmith ceiling: %w", err)
	}
	names := make(map[string]string, len(catalog))
	for _, c := range catalog {
		names[c.ID.String()] = c.Name
	}

	ok := true
	for claimID, level := range requested {
		name, found := names[claimID.String()]
		if !found {
			addMessage(ctx, Message{Code: CodeClaimNotFound, ClaimID: claimID, Level: level})
			ok = false
			continue
		}
		ceiling := resolved[name]
		if ceiling.IsDenied() {
			addMessage(ctx, Message{Code: CodeCreatorLacksClaim, ClaimID: claimID, Claim: name, Level: level})
			ok = false
			continue
		}
		if level > ceiling {
			addMessage(ctx, Message{Code: CodeExceedsCreatorLevel, ClaimID: claimID, Claim: name, Level: level, Ceiling: ceiling})
			ok = false
		}
	}

	if !ok && e.plugins != nil {
		e.plugins.EmitCeilingDenied(ctx, scope.tenantID, creatorUserID, requested)
	}
	return ok, nil
}

// DelegateClient validates the requested claims against the creator's
// ceiling and, on success, persists the client and its delegated grant rows.
// On a ceiling failure it returns (nil, nil) with the context sink
// populated.
func (e *Engine) DelegateClient(ctx context.Context, client *serviceclient.ServiceClient, requested map[id.ClaimID]claim.Level) (*serviceclient.ServiceClient, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return nil, ErrTenantRequired
	}

	ok, err := e.ValidateCeiling(ctx, client.CreatorUserID, requested)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	now := time.Now().UTC()
	if client.ID.IsNil() {
		client.ID = id.NewServiceClientID()
	}
	client.TenantID = scope.tenantID
	client.Status = serviceclient.StatusActive
	client.Version = 1
	client.CreatedAt = now
	client.UpdatedAt = now
	if err := e.store.CreateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("keysmith delegate: %w", err)
	}

	for claimID, level := range requested {
		cc := &serviceclient.ClientClaim{
			ID:        id.NewClientClaimID(),
			ClientID:  client.ID,
			ClaimID:   claimID,
			Level:     level,
			Version:   1,
			CreatedAt: now,
		}
		if err := e.store.CreateClientClaim(ctx, cc); err != nil {
			return nil, fmt.Errorf("keysmith delegate: %w", err)
		}
	}

	if e.plugins != nil {
		e.plugins.EmitClientDelegated(ctx, client)
	}
	return client, nil
}
