package extension

import "time"

// Config holds the keysmith extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.keysmith" or "keysmith" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// MaxHierarchyDepth controls the maximum depth for role hierarchy walks.
	MaxHierarchyDepth int `json:"max_hierarchy_depth" mapstructure:"max_hierarchy_depth" yaml:"max_hierarchy_depth"`

	// DenyListTTL is the lifetime of user deny-list entries written by
	// revocation cascades.
	DenyListTTL time.Duration `json:"deny_list_ttl" mapstructure:"deny_list_ttl" yaml:"deny_list_ttl"`

	// CacheTTL is the lifetime of cached claim resolutions. When positive,
	// the extension installs an in-memory cache with this TTL unless an
	// engine option supplies one. Zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxHierarchyDepth: 10,
		DenyListTTL:       10 * 365 * 24 * time.Hour,
		CacheTTL:          5 * time.Minute,
	}
}
