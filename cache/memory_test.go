package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/keysmith/claim"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	claims := map[string]claim.Level{"approve_expense": 3}

	// Miss
	_, ok := c.Get(ctx, "t1", "u1")
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "t1", "u1", claims)
	got, ok := c.Get(ctx, "t1", "u1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got["approve_expense"] != 3 {
		t.Fatalf("expected level 3, got %d", got["approve_expense"])
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, "t1", "u1", map[string]claim.Level{"x": 1})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "t1", "u1")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", "u1", map[string]claim.Level{"x": 1})
	c.Set(ctx, "t1", "u2", map[string]claim.Level{"x": 2})

	c.InvalidateUser(ctx, "t1", "u1")

	if _, ok := c.Get(ctx, "t1", "u1"); ok {
		t.Fatal("u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", "u2"); !ok {
		t.Fatal("u2 should still be cached")
	}
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", "u1", map[string]claim.Level{"x": 1})
	c.Set(ctx, "t1", "u2", map[string]claim.Level{"x": 2})
	c.Set(ctx, "t2", "u1", map[string]claim.Level{"x": 3})

	c.InvalidateTenant(ctx, "t1")

	if _, ok := c.Get(ctx, "t1", "u1"); ok {
		t.Fatal("t1 u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", "u2"); ok {
		t.Fatal("t1 u2 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t2", "u1"); !ok {
		t.Fatal("t2 u1 should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		c.Set(ctx, "t1", fmt.Sprintf("u%d", i), map[string]claim.Level{"x": 1})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
