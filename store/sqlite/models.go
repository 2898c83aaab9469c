package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/keysmith/apikey"
	"github.com/xraph/keysmith/assignment"
	"github.com/xraph/keysmith/audit"
	"github.com/xraph/keysmith/claim"
	"github.com/xraph/keysmith/denylist"
	"github.com/xraph/keysmith/id"
	"github.com/xraph/keysmith/refreshtoken"
	"github.com/xraph/keysmith/role"
	"github.com/xraph/keysmith/serviceclient"
)

// ──────────────────────────────────────────────────
// Claim model
// ──────────────────────────────────────────────────

type claimModel struct {
	grove.BaseModel `grove:"table:keysmith_claims"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func claimToModel(c *claim.Claim) *claimModel {
	return &claimModel{
		ID:          c.ID.String(),
		TenantID:    c.TenantID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

func claimFromModel(m *claimModel) *claim.Claim {
	cid, _ := id.ParseClaimID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &claim.Claim{
		ID:          cid,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:keysmith_roles"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Slug            string    `grove:"slug,notnull"`
	Description     string    `grove:"description"`
	IsSystem        bool      `grove:"is_system,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		TenantID:    r.TenantID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:          rid,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		IsSystem:    m.IsSystem,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role grant model
// ──────────────────────────────────────────────────

type roleGrantModel struct {
	grove.BaseModel `grove:"table:keysmith_role_grants"`
	RoleID          string `grove:"role_id,pk"`
	ClaimID         string `grove:"claim_id,pk"`
	Level           int16  `grove:"level,notnull"`
	Defer           bool   `grove:"defer_to_parent,notnull"`
}

func grantToModel(g *role.Grant) *roleGrantModel {
	return &roleGrantModel{
		RoleID:  g.RoleID.String(),
		ClaimID: g.ClaimID.String(),
		Level:   int16(g.Level),
		Defer:   g.Defer,
	}
}

func grantFromModel(m *roleGrantModel) *role.Grant {
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	cid, _ := id.ParseClaimID(m.ClaimID) //nolint:errcheck // stored IDs are always valid
	return &role.Grant{
		RoleID:  rid,
		ClaimID: cid,
		Level:   claim.Level(m.Level),
		Defer:   m.Defer,
	}
}

// ──────────────────────────────────────────────────
// Role hierarchy model
// ──────────────────────────────────────────────────

type hierarchyEdgeModel struct {
	grove.BaseModel `grove:"table:keysmith_role_hierarchy"`
	TenantID        string `grove:"tenant_id,notnull"`
	RoleID          string `grove:"role_id,pk"`
	ParentID        string `grove:"parent_id,pk"`
}

func edgeFromModel(m *hierarchyEdgeModel) *role.HierarchyEdge {
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParseRoleID(m.ParentID) //nolint:errcheck // stored IDs are always valid
	return &role.HierarchyEdge{RoleID: rid, ParentID: pid}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:keysmith_assignments"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	UserID          string    `grove:"user_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	GrantedBy       string    `grove:"granted_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:        a.ID.String(),
		TenantID:  a.TenantID,
		UserID:    a.UserID,
		RoleID:    a.RoleID.String(),
		GrantedBy: a.GrantedBy,
		CreatedAt: a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:        aid,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		RoleID:    rid,
		GrantedBy: m.GrantedBy,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Service client model
// ──────────────────────────────────────────────────

type serviceClientModel struct {
	grove.BaseModel `grove:"table:keysmith_service_clients"`
	ID              string     `grove:"id,pk"`
	TenantID        string     `grove:"tenant_id,notnull"`
	CreatorUserID   string     `grove:"creator_user_id,notnull"`
	Name            string     `grove:"name,notnull"`
	Status          string     `grove:"status,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	RevokedAt       *time.Time `grove:"revoked_at"`
	RevokedReason   string     `grove:"revoked_reason"`
	Version         int64      `grove:"version,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func clientToModel(c *serviceclient.ServiceClient) *serviceClientModel {
	return &serviceClientModel{
		ID:            c.ID.String(),
		TenantID:      c.TenantID,
		CreatorUserID: c.CreatorUserID,
		Name:          c.Name,
		Status:        string(c.Status),
		ExpiresAt:     c.ExpiresAt,
		RevokedAt:     c.RevokedAt,
		RevokedReason: c.RevokedReason,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func clientFromModel(m *serviceClientModel) *serviceclient.ServiceClient {
	sid, _ := id.ParseServiceClientID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &serviceclient.ServiceClient{
		ID:            sid,
		TenantID:      m.TenantID,
		CreatorUserID: m.CreatorUserID,
		Name:          m.Name,
		Status:        serviceclient.Status(m.Status),
		ExpiresAt:     m.ExpiresAt,
		RevokedAt:     m.RevokedAt,
		RevokedReason: m.RevokedReason,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Client claim model
// ──────────────────────────────────────────────────

type clientClaimModel struct {
	grove.BaseModel `grove:"table:keysmith_client_claims"`
	ID              string    `grove:"id,pk"`
	ClientID        string    `grove:"client_id,notnull"`
	ClaimID         string    `grove:"claim_id,notnull"`
	Level           int16     `grove:"level,notnull"`
	Version         int64     `grove:"version,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func clientClaimToModel(cc *serviceclient.ClientClaim) *clientClaimModel {
	return &clientClaimModel{
		ID:        cc.ID.String(),
		ClientID:  cc.ClientID.String(),
		ClaimID:   cc.ClaimID.String(),
		Level:     int16(cc.Level),
		Version:   cc.Version,
		CreatedAt: cc.CreatedAt,
	}
}

func clientClaimFromModel(m *clientClaimModel) *serviceclient.ClientClaim {
	ccid, _ := id.ParseClientClaimID(m.ID)        //nolint:errcheck // stored IDs are always valid
	sid, _ := id.ParseServiceClientID(m.ClientID) //nolint:errcheck // stored IDs are always valid
	cid, _ := id.ParseClaimID(m.ClaimID)          //nolint:errcheck // stored IDs are always valid
	return &serviceclient.ClientClaim{
		ID:        ccid,
		ClientID:  sid,
		ClaimID:   cid,
		Level:     claim.Level(m.Level),
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// API key model
// ──────────────────────────────────────────────────

type apiKeyModel struct {
	grove.BaseModel `grove:"table:keysmith_api_keys"`
	ID              string     `grove:"id,pk"`
	ClientID        string     `grove:"client_id,notnull"`
	Name            string     `grove:"name,notnull"`
	Status          string     `grove:"status,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	RevokedAt       *time.Time `grove:"revoked_at"`
	Version         int64      `grove:"version,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func apiKeyToModel(k *apikey.APIKey) *apiKeyModel {
	return &apiKeyModel{
		ID:        k.ID.String(),
		ClientID:  k.ClientID.String(),
		Name:      k.Name,
		Status:    string(k.Status),
		ExpiresAt: k.ExpiresAt,
		RevokedAt: k.RevokedAt,
		Version:   k.Version,
		CreatedAt: k.CreatedAt,
		UpdatedAt: k.UpdatedAt,
	}
}

func apiKeyFromModel(m *apiKeyModel) *apikey.APIKey {
	kid, _ := id.ParseAPIKeyID(m.ID)              //nolint:errcheck // stored IDs are always valid
	sid, _ := id.ParseServiceClientID(m.ClientID) //nolint:errcheck // stored IDs are always valid
	return &apikey.APIKey{
		ID:        kid,
		ClientID:  sid,
		Name:      m.Name,
		Status:    apikey.Status(m.Status),
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Refresh token model
// ──────────────────────────────────────────────────

type refreshTokenModel struct {
	grove.BaseModel `grove:"table:keysmith_refresh_tokens"`
	ID              string     `grove:"id,pk"`
	TenantID        string     `grove:"tenant_id,notnull"`
	UserID          string     `grove:"user_id,notnull"`
	JTI             string     `grove:"jti,notnull"`
	Status          string     `grove:"status,notnull"`
	ExpiresAt       time.Time  `grove:"expires_at,notnull"`
	RevokedAt       *time.Time `grove:"revoked_at"`
	Version         int64      `grove:"version,notnull"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

func refreshTokenToModel(t *refreshtoken.RefreshToken) *refreshTokenModel {
	return &refreshTokenModel{
		ID:        t.ID.String(),
		TenantID:  t.TenantID,
		UserID:    t.UserID,
		JTI:       t.JTI,
		Status:    string(t.Status),
		ExpiresAt: t.ExpiresAt,
		RevokedAt: t.RevokedAt,
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func refreshTokenFromModel(m *refreshTokenModel) *refreshtoken.RefreshToken {
	tid, _ := id.ParseRefreshTokenID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &refreshtoken.RefreshToken{
		ID:        tid,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		JTI:       m.JTI,
		Status:    refreshtoken.Status(m.Status),
		ExpiresAt: m.ExpiresAt,
		RevokedAt: m.RevokedAt,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Deny list model
// ──────────────────────────────────────────────────

type denyEntryModel struct {
	grove.BaseModel `grove:"table:keysmith_deny_list"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Kind            string    `grove:"kind,notnull"`
	Value           string    `grove:"value,notnull"`
	Reason          string    `grove:"reason"`
	ExpiresAt       time.Time `grove:"expires_at,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func denyEntryToModel(e *denylist.Entry) *denyEntryModel {
	return &denyEntryModel{
		ID:        e.ID.String(),
		TenantID:  e.TenantID,
		Kind:      string(e.Kind),
		Value:     e.Value,
		Reason:    e.Reason,
		ExpiresAt: e.ExpiresAt,
		CreatedAt: e.CreatedAt,
	}
}

func denyEntryFromModel(m *denyEntryModel) *denylist.Entry {
	did, _ := id.ParseDenyListID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &denylist.Entry{
		ID:        did,
		TenantID:  m.TenantID,
		Kind:      denylist.Kind(m.Kind),
		Value:     m.Value,
		Reason:    m.Reason,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:keysmith_audit_log"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	Operation       string         `grove:"operation,notnull"`
	UserID          string         `grove:"user_id,notnull"`
	Reason          string         `grove:"reason"`
	RefreshTokens   int            `grove:"refresh_tokens,notnull"`
	Clients         int            `grove:"clients,notnull"`
	APIKeys         int            `grove:"api_keys,notnull"`
	ChangedClaims   int            `grove:"changed_claims,notnull"`
	Metadata        string         `grove:"metadata"` // JSON text
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) (*auditModel, error) {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal audit metadata: %w", err)
	}
	return &auditModel{
		ID:            e.ID.String(),
		TenantID:      e.TenantID,
		Operation:     string(e.Operation),
		UserID:        e.UserID,
		Reason:        e.Reason,
		RefreshTokens: e.RefreshTokens,
		Clients:       e.Clients,
		APIKeys:       e.APIKeys,
		ChangedClaims: e.ChangedClaims,
		Metadata:      string(metadata),
		CreatedAt:     e.CreatedAt,
	}, nil
}

func auditFromModel(m *auditModel) (*audit.Entry, error) {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
	}
	return &audit.Entry{
		ID:            aid,
		TenantID:      m.TenantID,
		Operation:     audit.Operation(m.Operation),
		UserID:        m.UserID,
		Reason:        m.Reason,
		RefreshTokens: m.RefreshTokens,
		Clients:       m.Clients,
		APIKeys:       m.APIKeys,
		ChangedClaims: m.ChangedClaims,
		Metadata:      metadata,
		CreatedAt:     m.CreatedAt,
	}, nil
}
