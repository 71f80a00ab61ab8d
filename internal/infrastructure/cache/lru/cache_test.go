package lru

import (
	"context"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := New(16, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || got != "v" {
		t.Errorf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c := New(16, time.Hour)
	if _, ok := c.Get(context.Background(), "absent"); ok {
		t.Error("hit on unknown key")
	}
}

func TestCacheExpiredEntryIsMiss(t *testing.T) {
	c := New(16, time.Hour)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set(ctx, "k", "v", time.Minute)

	c.now = func() time.Time { return base.Add(time.Minute) }
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("read at exactly the deadline must miss")
	}
}

func TestCachePerEntryTTLs(t *testing.T) {
	c := New(16, 4*time.Hour)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set(ctx, "short", "a", time.Hour)
	c.Set(ctx, "long", "b", 2*time.Hour)

	c.now = func() time.Time { return base.Add(90 * time.Minute) }
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("short entry survived past its TTL")
	}
	if _, ok := c.Get(ctx, "long"); !ok {
		t.Error("long entry expired early")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := New(16, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "k", "old", time.Minute)
	c.Set(ctx, "k", "new", time.Minute)
	if got, _ := c.Get(ctx, "k"); got != "new" {
		t.Errorf("Get = %q, want new", got)
	}
}

func TestCacheCapacityEviction(t *testing.T) {
	c := New(2, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Minute)
	c.Set(ctx, "c", "3", time.Minute)

	hits := 0
	for _, k := range []string{"a", "b", "c"} {
		if _, ok := c.Get(ctx, k); ok {
			hits++
		}
	}
	if hits != 2 {
		t.Errorf("hits = %d after overflow, want 2", hits)
	}
}

func TestCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := New(16, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "k", "v", 0)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("zero-TTL entry was stored")
	}
}
