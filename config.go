package keysmith

import "time"

// Config holds configuration for the Keysmith engine.
type Config struct {
	// MaxHierarchyDepth is the maximum depth for role hierarchy traversal.
	// Defaults to 10.
	MaxHierarchyDepth int `json:"max_hierarchy_depth,omitempty"`

	// DenyListTTL is how long a cascade's deny-list entries live.
	// Defaults to ten years, the durable marker of "permanently
	// deactivated".
	DenyListTTL time.Duration `json:"deny_list_ttl,omitempty"`

	// CacheTTL is the time-to-live for cached claim resolutions.
	// Zero means no caching even when a cache is configured.
	// Defaults to five minutes.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxHierarchyDepth: 10,
		DenyListTTL:       10 * 365 * 24 * time.Hour,
		CacheTTL:          5 * time.Minute,
	}
}
