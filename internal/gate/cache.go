package gate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/furfield/orgportal/internal/metrics"
)

// cacheEntry is a verification verdict with its expiry. Invalid verdicts
// are cached for the same duration as valid ones to bound retry storms
// against the verification endpoint.
type cacheEntry struct {
	valid     bool
	expiresAt time.Time
}

// Cache is the short-lived token verification cache, keyed by the raw
// token string. It is constructed once at process start and injected into
// the Introspector.
//
// Entries expire lazily at read time; a capacity cap plus the optional
// janitor keep memory bounded when tokens never repeat. Concurrent writers
// for the same token are tolerated (last write wins, both compute the same
// verdict).
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time
}

// NewCache creates a verdict cache with the given TTL and entry cap.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      time.Now,
	}
}

// Get returns the cached verdict for the token. ok is false when the
// token was never verified or its entry has expired.
func (c *Cache) Get(token string) (valid, ok bool) {
	now := c.clock()

	c.mu.RLock()
	e, found := c.entries[token]
	c.mu.RUnlock()

	if !found || !now.Before(e.expiresAt) {
		metrics.VerdictCacheMisses.Inc()
		return false, false
	}
	metrics.VerdictCacheHits.Inc()
	return e.valid, true
}

// Put stores a verdict with a fresh TTL, overwriting any previous entry
// for the token.
func (c *Cache) Put(token string, valid bool) {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[token]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[token] = cacheEntry{valid: valid, expiresAt: now.Add(c.ttl)}
}

// Len returns the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked removes expired entries, then arbitrary ones until the cache
// is under capacity. Arbitrary eviction only costs a re-verification.
func (c *Cache) evictLocked(now time.Time) {
	for token, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, token)
		}
	}
	for token := range c.entries {
		if len(c.entries) < c.maxEntries {
			break
		}
		delete(c.entries, token)
	}
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := c.sweep()
				if removed > 0 {
					log.Debug().Int("removed", removed).Msg("Verdict cache swept")
				}
			}
		}
	}()
}

func (c *Cache) sweep() int {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for token, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}
