package recurrence

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"sort"
	"sync"
	"time"

	"github.com/flockhq/eventkit/event"
)

// ResultCache memoizes expansion results. Keys cover every expansion
// input, so a hit is indistinguishable from recomputation and the
// engine's determinism guarantee is preserved.
type ResultCache struct {
	mu              sync.RWMutex
	entries         map[string]*cacheEntry
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

type cacheEntry struct {
	occurrences []event.Occurrence
	expiresAt   time.Time
	accessedAt  time.Time
}

// CacheConfig holds configuration for the result cache.
type CacheConfig struct {
	TTL             time.Duration // how long entries stay valid
	MaxEntries      int           // entry count that triggers trimming
	CleanupInterval time.Duration // how often expired entries are swept
}

// DefaultCacheConfig mirrors the month-view cache of the calendar UI:
// results stay warm for a few minutes and only the most recently used
// windows are kept.
var DefaultCacheConfig = CacheConfig{
	TTL:             5 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 2 * time.Minute,
}

// NewResultCache creates a cache and starts its sweep goroutine. Zero
// config fields fall back to DefaultCacheConfig; a zero cleanup interval
// would panic the ticker. Call Close when done.
func NewResultCache(config CacheConfig) *ResultCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	c := &ResultCache{
		entries:         make(map[string]*cacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// cacheKey hashes every input that can influence an expansion result.
func cacheKey(ev event.Event, ruleText string, exceptions event.ExceptionSet, w event.Window) string {
	h := sha256.New()
	h.Write([]byte(ev.ID))
	h.Write([]byte{0})
	writeTime(h, ev.Start)
	writeTime(h, ev.End)
	if ev.AllDay {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte(ruleText))
	h.Write([]byte{0})
	for _, d := range exceptions.Dates() {
		writeTime(h, d)
	}
	writeTime(h, w.Start)
	writeTime(h, w.End)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeTime(h hash.Hash, t time.Time) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.UnixNano()))
	h.Write(buf[:])
}

func (c *ResultCache) get(key string) ([]event.Occurrence, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	entry.accessedAt = now
	c.mu.Unlock()

	// Copy so callers can't mutate the cached slice.
	out := make([]event.Occurrence, len(entry.occurrences))
	copy(out, entry.occurrences)
	return out, true
}

func (c *ResultCache) set(key string, occurrences []event.Occurrence) {
	now := time.Now()
	stored := make([]event.Occurrence, len(occurrences))
	copy(stored, occurrences)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		occurrences: stored,
		expiresAt:   now.Add(c.ttl),
		accessedAt:  now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// until the cache is back under its size limit. Caller holds mu.
func (c *ResultCache) cleanup() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	byAge := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		byAge = append(byAge, keyAccess{key: key, accessedAt: entry.accessedAt})
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].accessedAt.Before(byAge[j].accessedAt)
	})
	for _, ka := range byAge[:len(c.entries)-c.maxEntries] {
		delete(c.entries, ka.key)
	}
}

func (c *ResultCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanup()
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the sweep goroutine and drops all entries. Safe to call
// more than once.
func (c *ResultCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// CacheStats reports cache occupancy.
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}

// Stats returns a snapshot of cache occupancy.
func (c *ResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	expired := 0
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}
	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
	}
}
