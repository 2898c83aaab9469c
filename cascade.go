package keysmith

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/denylist"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/serviceclient"
)

// RevokeAllUserTokens revokes everything downstream of a user: their active
// refresh tokens, the service clients they created (with each client's API
// keys and delegated grant rows), and finally a deny-list entry for the
// user.
//
// The cascade is best effort row by row. A version conflict means another
// writer revoked the row first; it is counted as skipped, not failed. The
// deny-list entry is written last and is the authoritative block: once it
// exists, every credential of the user is rejected regardless of row state,
// so a partially applied cascade is safe to retry.
func (e *Engine) RevokeAllUserTokens(ctx context.Context, userID, reason string) (*RevocationSummary, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return nil, ErrTenantRequired
	}
	now := time.Now().UTC()
	summary := &RevocationSummary{}

	tokens, err := e.store.ListUserRefreshTokens(ctx, scope.tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("keysmith revoke: %w", err)
	}
	for _, t := range tokens {
		if !t.IsActive() {
			continue
		}
		t.Revoke(now)
		ok, err := e.store.UpdateRefreshToken(ctx, t)
		if err != nil {
			e.logger.Warn("refresh token revocation failed",
				slog.String("token", t.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			summary.Skipped++
			continue
		}
		summary.RefreshTokens++
	}

	clients, err := e.store.ListClientsByCreator(ctx, scope.tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("keysmith revoke: %w", err)
	}
	for _, c := range clients {
		if !c.IsActive() {
			continue
		}

		// The client transitions first; its keys and grant rows follow only
		// once this writer owns the revocation. A conflict means another
		// cascade holds the client and will finish its downstream rows.
		c.Revoke(now, reason)
		ok, err := e.store.UpdateClient(ctx, c)
		if err != nil {
			e.logger.Warn("client revocation failed",
				slog.String("client", c.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			summary.Skipped++
			continue
		}
		summary.Clients++

		keys, err := e.store.ListClientAPIKeys(ctx, c.ID)
		if err != nil {
			e.logger.Warn("listing client api keys failed",
				slog.String("client", c.ID.String()),
				slog.String("error", err.Error()),
			)
		}
		for _, k := range keys {
			if !k.IsActive() {
				continue
			}
			k.Revoke(now)
			ok, err := e.store.UpdateAPIKey(ctx, k)
			if err != nil {
				e.logger.Warn("api key revocation failed",
					slog.String("key", k.ID.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
			if !ok {
				summary.Skipped++
				continue
			}
			summary.APIKeys++
		}

		if err := e.store.DeleteClientClaims(ctx, c.ID); err != nil {
			e.logger.Warn("deleting client claims failed",
				slog.String("client", c.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	// The deny-list entry comes last so its existence implies the cascade
	// ran. Registration is idempotent.
	entry := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  scope.tenantID,
		Kind:      denylist.KindUser,
		Value:     userID,
		Reason:    reason,
		ExpiresAt: now.Add(e.config.DenyListTTL),
		CreatedAt: now,
	}
	if err := e.store.UpsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("keysmith revoke: deny list: %w", err)
	}

	e.writeAudit(ctx, &audit.Entry{
		ID:            id.NewAuditID(),
		TenantID:      scope.tenantID,
		Operation:     audit.OpRevokeAll,
		UserID:        userID,
		Reason:        reason,
		RefreshTokens: summary.RefreshTokens,
		Clients:       summary.Clients,
		APIKeys:       summary.APIKeys,
		CreatedAt:     now,
	})

	if e.cache != nil {
		e.cache.InvalidateUser(ctx, scope.tenantID, userID)
	}
	if e.plugins != nil {
		e.plugins.EmitRevocationCascade(ctx, scope.tenantID, userID, summary)
	}
	return summary, nil
}

// RecalculateClientClaims re-derives the delegated grants of every active
// client the user created after the user's own claims may have shrunk.
// Delegated levels only ever ratchet down: newLevel = Min(stored, what the
// creator now resolves), with Denied for claims the creator can no longer
// resolve at all.
//
// A client whose grants are already within the ceiling is left untouched,
// version included. Changed clients have their grant rows replaced
// wholesale. Returns nil when nothing changed.
func (e *Engine) RecalculateClientClaims(ctx context.Context, userID string) (*ClaimChangeSet, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return nil, ErrTenantRequired
	}

	// The pass must see the current resolution, not a cached one.
	if e.cache != nil {
		e.cache.InvalidateUser(ctx, scope.tenantID, userID)
	}
	resolved, err := e.ResolveUserClaims(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := e.store.ListClaims(ctx, &claim.ListFilter{TenantID: scope.tenantID})
	if err != nil {
		return nil, fmt.Errorf("keysmith recalculate: %w", err)
	}
	names := make(map[string]string, len(catalog))
	for _, c := range catalog {
		names[c.ID.String()] = c.Name
	}

	clients, err := e.store.ListClientsByCreator(ctx, scope.tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("keysmith recalculate: %w", err)
	}

	now := time.Now().UTC()
	changeSet := &ClaimChangeSet{UserID: userID}
	for _, c := range clients {
		if !c.IsActive() {
			continue
		}
		rows, err := e.store.ListClientClaims(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("keysmith recalculate: %w", err)
		}

		var changes []ClaimChange
		next := make([]*serviceclient.ClientClaim, 0, len(rows))
		for _, row := range rows {
			name := names[row.ClaimID.String()]
			ceiling := claim.Denied
			if name != "" {
				ceiling = resolved[name]
			}
			newLevel := claim.Min(row.Level, ceiling)
			cp := *row
			cp.Level = newLevel
			next = append(next, &cp)
			if newLevel != row.Level {
				changes = append(changes, ClaimChange{
					ClientID: c.ID,
					ClaimID:  row.ClaimID,
					Claim:    name,
					Old:      row.Level,
					New:      newLevel,
				})
			}
		}
		if len(changes) == 0 {
			continue
		}

		// Bump the client version first so a concurrent revocation or
		// recalculation of the same client loses cleanly.
		ok, err := e.store.UpdateClient(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("keysmith recalculate: %w", err)
		}
		if !ok {
			continue
		}

		if err := e.store.DeleteClientClaims(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("keysmith recalculate: %w", err)
		}
		for _, row := range next {
			nr := &serviceclient.ClientClaim{
				ID:        id.NewClientClaimID(),
				ClientID:  c.ID,
				ClaimID:   row.ClaimID,
				Level:     row.Level,
				Version:   row.Version + 1,
				CreatedAt: now,
			}
			if err := e.store.CreateClientClaim(ctx, nr); err != nil {
				return nil, fmt.Errorf("keysmith recalculate: %w", err)
			}
		}
		changeSet.Clients++
		changeSet.Changes = append(changeSet.Changes, changes...)
	}

	if len(changeSet.Changes) == 0 {
		return nil, nil
	}

	e.writeAudit(ctx, &audit.Entry{
		ID:            id.NewAuditID(),
		TenantID:      scope.tenantID,
		Operation:     audit.OpRecalculate,
		UserID:        userID,
		Clients:       changeSet.Clients,
		ChangedClaims: len(changeSet.Changes),
		CreatedAt:     now,
	})
	if e.plugins != nil {
		e.plugins.EmitClaimsRecalculated(ctx, scope.tenantID, userID, changeSet)
	}
	return changeSet, nil
}

// RevokeRefreshToken revokes a single refresh token and registers its JTI
// on the deny list for the token's remaining lifetime. Returns false when
// the token was already revoked, here or by a concurrent writer.
func (e *Engine) RevokeRefreshToken(ctx context.Context, tokenID id.RefreshTokenID, reason string) (bool, error) {
	t, err := e.store.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("keysmith revoke token: %w", err)
	}
	if !t.IsActive() {
		return false, nil
	}

	now := time.Now().UTC()
	t.Revoke(now)
	ok, err := e.store.UpdateRefreshToken(ctx, t)
	if err != nil {
		return false, fmt.Errorf("keysmith revoke token: %w", err)
	}
	if !ok {
		return false, nil
	}

	// No deny entry for a token that can no longer be presented.
	if !t.ExpiresAt.After(now) {
		return true, nil
	}
	entry := &denylist.Entry{
		ID:        id.NewDenyListID(),
		TenantID:  t.TenantID,
		Kind:      denylist.KindJTI,
		Value:     t.JTI,
		Reason:    reason,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: now,
	}
	if err := e.store.UpsertEntry(ctx, entry); err != nil {
		return false, fmt.Errorf("keysmith revoke token: deny list: %w", err)
	}
	return true, nil
}

// IsUserRevoked reports whether the user has an unexpired deny-list entry.
func (e *Engine) IsUserRevoked(ctx context.Context, userID string) (bool, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return false, ErrTenantRequired
	}
	denied, err := e.store.IsDenied(ctx, scope.tenantID, denylist.KindUser, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("keysmith deny check: %w", err)
	}
	return denied, nil
}

// IsTokenRevoked reports whether the JTI has an unexpired deny-list entry.
func (e *Engine) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	scope := scopeFromContext(ctx)
	if scope.tenantID == "" {
		return false, ErrTenantRequired
	}
	denied, err := e.store.IsDenied(ctx, scope.tenantID, denylist.KindJTI, jti, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("keysmith deny check: %w", err)
	}
	return denied, nil
}
