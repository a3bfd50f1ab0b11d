package rules

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a loaded rule set stays valid before the next
// read goes back to the store.
const DefaultCacheTTL = 30 * time.Minute

// Cache lazily loads the active rule set from the store and keeps it for a
// TTL. Rule mutations must call Invalidate; there is no background refresh.
type Cache struct {
	store Store
	ttl   time.Duration

	mu       sync.Mutex
	rules    []Rule
	loadedAt time.Time

	// now is swappable for tests.
	now func() time.Time

	logger *slog.Logger
}

// NewCache creates a rule cache over the store. A ttl <= 0 falls back to
// DefaultCacheTTL.
func NewCache(store Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With("component", "rule_cache"),
	}
}

// Active returns the active rules sorted by ascending priority. Equal
// priorities keep storage order. The result is shared; callers must not
// mutate it.
func (c *Cache) Active(ctx context.Context) ([]Rule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rules != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.rules, nil
	}

	loaded, err := c.store.ActiveRules(ctx)
	if err != nil {
		// Serve the stale set if we have one; a rule-set read failure
		// should not take down message handling.
		if c.rules != nil {
			c.logger.Warn("rule reload failed, serving stale set", "error", err)
			return c.rules, nil
		}
		return nil, err
	}

	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].Priority < loaded[j].Priority
	})

	c.rules = loaded
	c.loadedAt = c.now()

	c.logger.Debug("rule set loaded", "rules", len(loaded))
	return c.rules, nil
}

// Invalidate drops the cached rule set. Called on any structural rule
// mutation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.rules = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()

	c.logger.Debug("rule cache invalidated")
}
