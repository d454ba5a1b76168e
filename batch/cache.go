package batch

import (
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"nutriplan"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCacheCapacity = 1024
)

// Cache holds ranked candidates per slot search. The whole cache is purged
// once more than ttl has passed since the previous purge; capacity bounds it
// in between.
type Cache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, []nutriplan.ScoredCandidate]
	ttl       time.Duration
	now       func() time.Time
	lastClear time.Time
}

// NewCache creates a cache. A nil clock means time.Now.
func NewCache(capacity int, ttl time.Duration, now func() time.Time) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, []nutriplan.ScoredCandidate](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate cache: %w", err)
	}
	return &Cache{entries: entries, ttl: ttl, now: now, lastClear: now()}, nil
}

func (c *Cache) Get(key string) ([]nutriplan.ScoredCandidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	cands, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(cands), true
}

func (c *Cache) Put(key string, cands []nutriplan.ScoredCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	c.entries.Add(key, slices.Clone(cands))
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Cache) expireLocked() {
	now := c.now()
	if now.Sub(c.lastClear) > c.ttl {
		c.entries.Purge()
		c.lastClear = now
	}
}

// CacheKey identifies a slot search by slot, rounded target and restriction set.
func CacheKey(slot nutriplan.Slot, targetKcal float64, restrictions []string) string {
	terms := slices.Clone(restrictions)
	slices.Sort(terms)
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(terms, "\x00")))
	return fmt.Sprintf("%s_%d_%x", slot, int(math.Round(targetKcal)), h.Sum64())
}
