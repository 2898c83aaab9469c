package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the keysmith store (SQLite).
var Migrations = migrate.NewGroup("keysmith")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_claims",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_claims (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, name)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_claims_tenant ON keysmith_claims (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_claims`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_roles (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    slug            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    is_system       INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_roles_tenant ON keysmith_roles (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_grants",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_role_grants (
    role_id         TEXT NOT NULL,
    claim_id        TEXT NOT NULL,
    level           INTEGER NOT NULL DEFAULT 0,
    defer_to_parent INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (role_id, claim_id)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_role_grants_claim ON keysmith_role_grants (claim_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_role_grants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_role_hierarchy",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_role_hierarchy (
    tenant_id       TEXT NOT NULL,
    role_id         TEXT NOT NULL,
    parent_id       TEXT NOT NULL,

    PRIMARY KEY (role_id, parent_id)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_role_hierarchy_tenant ON keysmith_role_hierarchy (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_role_hierarchy`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_assignments",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_assignments (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    role_id         TEXT NOT NULL,
    granted_by      TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, user_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_assignments_user ON keysmith_assignments (tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_keysmith_assignments_role ON keysmith_assignments (role_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_service_clients",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_service_clients (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    creator_user_id TEXT NOT NULL,
    name            TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'active',
    expires_at      TEXT,
    revoked_at      TEXT,
    revoked_reason  TEXT NOT NULL DEFAULT '',
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_keysmith_service_clients_creator ON keysmith_service_clients (tenant_id, creator_user_id);
CREATE INDEX IF NOT EXISTS idx_keysmith_service_clients_status ON keysmith_service_clients (tenant_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_service_clients`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_client_claims",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_client_claims (
    id              TEXT PRIMARY KEY,
    client_id       TEXT NOT NULL,
    claim_id        TEXT NOT NULL,
    level           INTEGER NOT NULL DEFAULT 0,
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(client_id, claim_id)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_client_claims_client ON keysmith_client_claims (client_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_client_claims`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_api_keys",
			Version: "20240101000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_api_keys (
    id              TEXT PRIMARY KEY,
    client_id       TEXT NOT NULL,
    name            TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'active',
    expires_at      TEXT,
    revoked_at      TEXT,
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_keysmith_api_keys_client ON keysmith_api_keys (client_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_api_keys`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_refresh_tokens",
			Version: "20240101000009",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_refresh_tokens (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    jti             TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'active',
    expires_at      TEXT NOT NULL,
    revoked_at      TEXT,
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, jti)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_refresh_tokens_user ON keysmith_refresh_tokens (tenant_id, user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_refresh_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_deny_list",
			Version: "20240101000010",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_deny_list (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    kind            TEXT NOT NULL,
    value           TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    expires_at      TEXT NOT NULL,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(tenant_id, kind, value)
);

CREATE INDEX IF NOT EXISTS idx_keysmith_deny_list_expiry ON keysmith_deny_list (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_deny_list`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audit_log",
			Version: "20240101000011",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keysmith_audit_log (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    operation       TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    refresh_tokens  INTEGER NOT NULL DEFAULT 0,
    clients         INTEGER NOT NULL DEFAULT 0,
    api_keys        INTEGER NOT NULL DEFAULT 0,
    changed_claims  INTEGER NOT NULL DEFAULT 0,
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_keysmith_audit_log_user ON keysmith_audit_log (tenant_id, user_id);
CREATE INDEX IF NOT EXISTS idx_keysmith_audit_log_op ON keysmith_audit_log (tenant_id, operation);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS keysmith_audit_log`)
				return err
			},
		},
	)
}
