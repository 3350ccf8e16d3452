package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// DefaultCacheTTL is how long a rule snapshot is served before reloading.
const DefaultCacheTTL = 5 * time.Minute

// RuleStore supplies the active rules.
type RuleStore interface {
	GetActiveKeywordRules(ctx context.Context) ([]model.KeywordRule, error)
}

// Cache serves a time-boxed snapshot of a RuleStore. Reads share a lock;
// only a reload takes it exclusively.
type Cache struct {
	loadedAt time.Time
	store    RuleStore
	now      func() time.Time
	rules    []model.KeywordRule
	ttl      time.Duration
	version  uint64
	valid    bool
	mu       sync.RWMutex
}

// NewCache wraps store. A ttl of zero selects DefaultCacheTTL.
func NewCache(store RuleStore, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Rules returns the current snapshot and its version, reloading from the
// store when the snapshot is missing or older than the TTL.
func (c *Cache) Rules(ctx context.Context) ([]model.KeywordRule, uint64, error) {
	c.mu.RLock()
	if c.fresh() {
		rules, version := c.rules, c.version
		c.mu.RUnlock()
		return rules, version, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have reloaded while we waited
	if c.fresh() {
		return c.rules, c.version, nil
	}

	rules, err := c.store.GetActiveKeywordRules(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load keyword rules: %w", err)
	}

	c.rules = rules
	c.loadedAt = c.now()
	c.valid = true
	c.version++
	return c.rules, c.version, nil
}

func (c *Cache) fresh() bool {
	return c.valid && c.now().Sub(c.loadedAt) < c.ttl
}

// Invalidate forces the next Rules call to reload.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// Snapshot reports the cached rule count and age without reloading.
func (c *Cache) Snapshot() (count int, age time.Duration, cached bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return 0, 0, false
	}
	return len(c.rules), c.now().Sub(c.loadedAt), true
}
