package lru

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSize   = 4096
	defaultMaxTTL = 4 * time.Hour
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is an in-process LRU with per-entry TTL. The underlying store
// evicts on capacity and on a cache-wide ceiling; the per-entry
// deadline is enforced on read, so a hit past its TTL is a miss.
type Cache struct {
	entries *expirable.LRU[string, entry]
	now     func() time.Time
}

// New builds a cache holding up to size entries. maxTTL is the hard
// ceiling; Set deadlines beyond it are cut short by eviction.
func New(size int, maxTTL time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if maxTTL <= 0 {
		maxTTL = defaultMaxTTL
	}
	return &Cache{
		entries: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now:     time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		return "", false
	}
	return e.value, true
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.entries.Add(key, entry{value: value, expiresAt: c.now().Add(ttl)})
}
