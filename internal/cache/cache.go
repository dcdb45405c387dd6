// Package cache memoizes result sets by query fingerprint with a TTL, an LRU
// capacity bound and single-flight computation.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/flightscan/internal/model"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 512

type entry struct {
	rs        *model.ResultSet
	expiresAt time.Time
}

// Cache is safe for concurrent use. Stored and returned result sets are
// copies, so no caller ever shares slices with the cache.
type Cache struct {
	mu    sync.Mutex
	items *lru.Cache[string, entry]
	group singleflight.Group
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	shared atomic.Int64
}

// New creates a cache holding at most capacity result sets.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	items, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create lru")
	}
	return &Cache{items: items, now: time.Now}, nil
}

// Get returns a copy of the live entry for fp. Expired entries are removed.
func (c *Cache) Get(fp string) (*model.ResultSet, bool) {
	rs, ok := c.lookup(fp)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return rs, true
}

// Put stores a copy of rs under fp for ttl. The stored copy's TTLExpiresAt
// reflects the entry's expiry.
func (c *Cache) Put(fp string, rs *model.ResultSet, ttl time.Duration) {
	if rs == nil || ttl <= 0 {
		return
	}
	expiresAt := c.now().Add(ttl)
	stored := rs.Clone()
	stored.TTLExpiresAt = expiresAt

	c.mu.Lock()
	evicted := c.items.Add(fp, entry{rs: stored, expiresAt: expiresAt})
	c.mu.Unlock()
	if evicted {
		zap.L().Debug("cache: evicted least recently used entry")
	}
}

// GetOrCompute returns the cached entry for fp or runs fn to produce it.
// Concurrent callers for the same fp share one fn run; each waits only as
// long as its own ctx allows. A failed run stores nothing. hit reports
// whether the value came from the cache without computing.
func (c *Cache) GetOrCompute(ctx context.Context, fp string, ttl time.Duration, fn func() (*model.ResultSet, error)) (rs *model.ResultSet, hit bool, err error) {
	if rs, ok := c.Get(fp); ok {
		return rs, true, nil
	}

	ch := c.group.DoChan(fp, func() (any, error) {
		// A flight that finished between our miss and this call may have stored it.
		if rs, ok := c.lookup(fp); ok {
			return rs, nil
		}
		rs, err := fn()
		if err != nil {
			return nil, err
		}
		c.Put(fp, rs, ttl)
		return rs, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, eris.Wrap(ctx.Err(), "cache: wait for computation")
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*model.ResultSet).Clone(), false, nil
	}
}

// Delete removes fp.
func (c *Cache) Delete(fp string) {
	c.mu.Lock()
	c.items.Remove(fp)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Stats returns hit, miss and shared-flight counts.
func (c *Cache) Stats() (hits, misses, shared int64) {
	return c.hits.Load(), c.misses.Load(), c.shared.Load()
}

func (c *Cache) lookup(fp string) (*model.ResultSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items.Get(fp)
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.items.Remove(fp)
		return nil, false
	}
	return e.rs.Clone(), true
}
