package timeline

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL is how long a response record stays cached.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores response records keyed by the raw query term. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, term string) (string, bool, error)
	Set(ctx context.Context, term, body string, ttl time.Duration) error
}

// NopCache never stores anything.
type NopCache struct{}

// Get implements Cache.
func (NopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

// Set implements Cache.
func (NopCache) Set(context.Context, string, string, time.Duration) error { return nil }

type memoryEntry struct {
	body      string
	expiresAt time.Time
}

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru   *expirable.LRU[string, memoryEntry]
	clock func() time.Time
}

// NewMemoryCache returns a cache holding at most size entries, none of which
// outlives maxTTL. A size of zero means unbounded.
func NewMemoryCache(size int, maxTTL time.Duration) *MemoryCache {
	if maxTTL <= 0 {
		maxTTL = DefaultCacheTTL
	}
	return &MemoryCache{
		lru:   expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		clock: time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, term string) (string, bool, error) {
	entry, ok := c.lru.Get(term)
	if !ok {
		return "", false, nil
	}
	if !c.clock().Before(entry.expiresAt) {
		c.lru.Remove(term)
		return "", false, nil
	}
	return entry.body, true, nil
}

// Set implements Cache. Non-positive ttl values are ignored.
func (c *MemoryCache) Set(_ context.Context, term, body string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.lru.Add(term, memoryEntry{body: body, expiresAt: c.clock().Add(ttl)})
	return nil
}

// Len returns the number of cached entries, including any not yet evicted
// after expiry.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
