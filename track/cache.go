package track

import (
	"sync"
	"time"
)

// DefaultMaxAge is how long a cache entry survives without a fresh
// observation before the sweep removes it.
const DefaultMaxAge = 30 * time.Second

// CacheEntry is one aircraft's latest fused state plus the time it was
// inserted or refreshed.
type CacheEntry struct {
	Aircraft    *FusedAircraft `json:"aircraft"`
	RefreshedAt time.Time      `json:"refreshedAt"`
}

// TrackCache is the time-indexed store of the latest fused state per entity
// key. It is the only component with memory beyond a single cycle. Mutation
// goes through the coordinator's sweep-then-upsert sequence; reads (Size,
// Entries) are safe to interleave with a sweep or upsert in progress.
type TrackCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// NewTrackCache creates an empty cache.
func NewTrackCache() *TrackCache {
	return &TrackCache{
		entries: make(map[string]*CacheEntry),
	}
}

// SweepExpired removes every entry whose observation timestamp is older than
// maxAge relative to now, and returns the number of entries removed. Run this
// before upserting the current cycle's entities so an aircraft that has gone
// silent is evicted rather than kept one extra cycle.
func (c *TrackCache) SweepExpired(now time.Time, maxAge time.Duration) int {
	nowMs := now.UnixMilli()
	maxAgeMs := maxAge.Milliseconds()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if nowMs-entry.Aircraft.ObservedAt > maxAgeMs {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// UpsertAll inserts or overwrites an entry for each entity with a derivable
// key. An upsert always replaces the full entry; entries are never partially
// updated.
func (c *TrackCache) UpsertAll(entities []*FusedAircraft, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, a := range entities {
		key := a.Key()
		if key == "" {
			continue
		}
		c.entries[key] = &CacheEntry{
			Aircraft:    a,
			RefreshedAt: now,
		}
	}
}

// Size returns the current number of cached entries.
func (c *TrackCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a point-in-time snapshot of the cache. Both the map and
// the entries are copies, so callers can't mutate cache state.
func (c *TrackCache) Entries() map[string]*CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*CacheEntry, len(c.entries))
	for key, entry := range c.entries {
		aircraft := *entry.Aircraft
		result[key] = &CacheEntry{
			Aircraft:    &aircraft,
			RefreshedAt: entry.RefreshedAt,
		}
	}
	return result
}
