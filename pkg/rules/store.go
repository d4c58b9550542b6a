// Package rules implements the dynamic, admin-mutable policy rule store
// used by output-guard stages, with the double-checked-locking revision
// cache described in §4.9: a read is valid only while it's both within
// refreshInterval and the invalidation bus hasn't bumped its revision
// since the cache was filled.
package rules

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Rule is one output-guard policy rule.
type Rule struct {
	ID        string
	Name      string
	Enabled   bool
	Priority  int
	Pattern   string
	Action    string
	CreatedAt time.Time
}

// Source fetches the full rule list from persistent storage. A
// PostgreSQL-backed implementation lives in pkg/store.
type Source interface {
	List(ctx context.Context) ([]Rule, error)
}

// InvalidationBus tracks a monotonically increasing revision counter,
// bumped by admin mutations. Mutate implementations call Bump; readers
// call CurrentRevision to detect staleness.
type InvalidationBus struct {
	revision atomic.Int64
}

// Bump advances the revision counter, invalidating every cache that last
// read the previous value.
func (b *InvalidationBus) Bump() {
	b.revision.Add(1)
}

// CurrentRevision returns the current revision value.
func (b *InvalidationBus) CurrentRevision() int64 {
	return b.revision.Load()
}

// Cache is a single stage's in-process cache of the enabled, sorted rule
// list, refreshed on a schedule and invalidated eagerly via revision bump.
type Cache struct {
	source          Source
	bus             *InvalidationBus
	refreshInterval time.Duration

	mu             sync.Mutex
	cachedAt       time.Time
	cachedRevision int64
	rules          []Rule
}

// NewCache creates a Cache reading from source, invalidated via bus, with
// cached reads considered fresh for up to refreshInterval.
func NewCache(source Source, bus *InvalidationBus, refreshInterval time.Duration) *Cache {
	return &Cache{source: source, bus: bus, refreshInterval: refreshInterval}
}

// Rules returns the current enabled rule list, sorted by (priority asc,
// createdAt asc), refreshing from source when the cache is stale or
// invalidated (§4.9).
func (c *Cache) Rules(ctx context.Context) ([]Rule, error) {
	c.mu.Lock()
	if c.isValidLocked() {
		rules := c.rules
		c.mu.Unlock()
		return rules, nil
	}
	c.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Double-checked: another goroutine may have refreshed while we waited
	// for the lock.
	if c.isValidLocked() {
		return c.rules, nil
	}

	all, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]Rule, 0, len(all))
	for _, r := range all {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].CreatedAt.Before(enabled[j].CreatedAt)
	})

	c.rules = enabled
	c.cachedAt = time.Now()
	c.cachedRevision = c.bus.CurrentRevision()
	return c.rules, nil
}

func (c *Cache) isValidLocked() bool {
	if c.cachedAt.IsZero() {
		return false
	}
	if time.Since(c.cachedAt) > c.refreshInterval {
		return false
	}
	return c.bus.CurrentRevision() == c.cachedRevision
}
