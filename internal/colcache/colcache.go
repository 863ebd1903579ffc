// Package colcache caches ordered column result sets so cheap
// pagination requests do not re-invoke the bd CLI. Entries are
// short-lived and replaced wholesale: any mutation invalidates every
// column, and a TTL bounds staleness when another process writes to
// the same store.
package colcache

import (
	"context"
	"sync"
	"time"

	"github.com/steveyegge/bdboard/internal/debug"
	"github.com/steveyegge/bdboard/internal/telemetry"
	"github.com/steveyegge/bdboard/internal/types"
)

// Cache sizing and lifetime defaults.
const (
	DefaultTTL       = 30 * time.Second
	DefaultOverFetch = 200
	DefaultMaxEntry  = 1000
)

type entry struct {
	cards     []*types.BoardCard
	fetchedAt time.Time
	// complete means the fetch that produced this entry returned
	// fewer rows than asked for, so the slice is the whole column
	// and can serve any range.
	complete bool
}

// Cache is a TTL'd page cache keyed by column. One Cache belongs to
// one client instance.
type Cache struct {
	mu      sync.Mutex
	entries map[types.Column]*entry

	ttl       time.Duration
	overFetch int
	maxEntry  int
	now       func() time.Time
}

// New creates an empty cache with default sizing.
func New() *Cache {
	return NewWithConfig(DefaultTTL, DefaultOverFetch, DefaultMaxEntry)
}

// NewWithConfig creates a cache with explicit TTL and sizing.
func NewWithConfig(ttl time.Duration, overFetch, maxEntry int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if overFetch <= 0 {
		overFetch = DefaultOverFetch
	}
	if maxEntry <= 0 {
		maxEntry = DefaultMaxEntry
	}
	return &Cache{
		entries:   make(map[types.Column]*entry),
		ttl:       ttl,
		overFetch: overFetch,
		maxEntry:  maxEntry,
		now:       time.Now,
	}
}

// SetClock injects a fake clock for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// FetchSize returns how many rows a miss should fetch: the larger of
// offset+limit and the over-fetch size, capped at the maximum entry
// size.
func (c *Cache) FetchSize(offset, limit int) int {
	n := offset + limit
	if n < c.overFetch {
		n = c.overFetch
	}
	if n > c.maxEntry {
		n = c.maxEntry
	}
	return n
}

// Get returns the requested page if a live entry covers it. The
// second result is false on miss (no entry, expired, or the entry is
// an incomplete fetch that does not reach offset+limit).
func (c *Cache) Get(col types.Column, offset, limit int) ([]*types.BoardCard, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[col]
	if !ok || c.now().Sub(e.fetchedAt) > c.ttl {
		if ok {
			delete(c.entries, col)
		}
		telemetry.RecordCacheEvent(context.Background(), "miss")
		return nil, 0, false
	}
	if !e.complete && len(e.cards) < offset+limit {
		telemetry.RecordCacheEvent(context.Background(), "miss")
		return nil, 0, false
	}

	telemetry.RecordCacheEvent(context.Background(), "hit")
	total := -1
	if e.complete {
		total = len(e.cards)
	}
	return slicePage(e.cards, offset, limit), total, true
}

// Page serves whatever overlap a live entry has with the requested
// range, regardless of coverage. Used after a fresh load, when the
// entry is as good as the data gets: a short result just means the
// column ends before the requested offset.
func (c *Cache) Page(col types.Column, offset, limit int) ([]*types.BoardCard, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[col]
	if !ok || c.now().Sub(e.fetchedAt) > c.ttl {
		return nil, 0, false
	}
	total := -1
	if e.complete {
		total = len(e.cards)
	}
	return slicePage(e.cards, offset, limit), total, true
}

// Find scans live entries for a card by issue ID.
func (c *Cache) Find(id string) (*types.BoardCard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if c.now().Sub(e.fetchedAt) > c.ttl {
			continue
		}
		for _, card := range e.cards {
			if card.ID == id {
				return card, true
			}
		}
	}
	return nil, false
}

// Len returns the size of a live complete entry for col, or -1 when
// the column size is unknown.
func (c *Cache) Len(col types.Column) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[col]
	if !ok || !e.complete || c.now().Sub(e.fetchedAt) > c.ttl {
		return -1
	}
	return len(e.cards)
}

// Put stores cards as the new entry for col, replacing any prior one.
// complete marks the slice as the entire column.
func (c *Cache) Put(col types.Column, cards []*types.BoardCard, complete bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(cards) > c.maxEntry {
		cards = cards[:c.maxEntry]
		complete = false
	}
	c.entries[col] = &entry{cards: cards, fetchedAt: c.now(), complete: complete}
	debug.Logf("cache: stored %d cards for %s (complete=%v)", len(cards), col, complete)
}

// InvalidateAll drops every entry. Called after each confirmed
// mutation: relationship and status changes can move issues between
// columns in ways the cache cannot selectively reconcile, so a
// slightly delayed re-fetch beats subtle staleness.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return
	}
	c.entries = make(map[types.Column]*entry)
	telemetry.RecordCacheEvent(context.Background(), "invalidate")
	debug.Logf("cache: invalidated all columns")
}

func slicePage(cards []*types.BoardCard, offset, limit int) []*types.BoardCard {
	if offset >= len(cards) {
		return []*types.BoardCard{}
	}
	end := offset + limit
	if end > len(cards) {
		end = len(cards)
	}
	return cards[offset:end]
}
