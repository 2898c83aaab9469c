// Package cache provides caching implementations for Keysmith claim
// resolutions.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/keysmith"
	"github.com/xraph/keysmith/claim"
)

// Compile-time interface check.
var _ keysmith.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration, keyed by
// (tenant, user).
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	claims    map[string]claim.Level
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached resolution for the user.
func (m *Memory) Get(_ context.Context, tenantID, userID string) (map[string]claim.Level, bool) {
	key := cacheKey(tenantID, userID)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.claims, true
}

// Set stores a resolution in the cache.
func (m *Memory) Set(_ context.Context, tenantID, userID string, claims map[string]claim.Level) {
	key := cacheKey(tenantID, userID)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict oldest entry.
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		claims:    claims,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateUser removes the cached resolution for a user.
func (m *Memory) InvalidateUser(_ context.Context, tenantID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(tenantID, userID))
}

// InvalidateTenant removes all cached resolutions for a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	prefix := tenantID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}

func cacheKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
