// Package cache memoizes normalized odds responses in memory for a bounded
// time window.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fortuna/gridiron/internal/odds"
)

// DefaultTTL is used when New is given a non-positive ttl
const DefaultTTL = 300 * time.Second

// Namespaces shared by the aggregator path and the scrapers
const (
	NamespaceOddsAPI = "oddsapi"
	NamespaceScrape  = "scrape"
)

// Entry is a cached, normalized response
type Entry struct {
	Games     []odds.Game
	FetchedAt time.Time
	StoredAt  time.Time
	Source    string
}

func (e Entry) clone() Entry {
	out := e
	out.Games = odds.CloneGames(e.Games)
	return out
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache is a TTL map guarded by a single mutex. Expired entries are ignored
// on read and overwritten on the next Set; nothing evicts them actively.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
}

// New creates a cache with the given ttl
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns a copy of the entry stored under key if it is younger than the ttl
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(e.StoredAt) >= c.ttl {
		return Entry{}, false
	}
	return e.clone(), true
}

// Set stores a copy of e under key, overwriting any previous entry
func (c *Cache) Set(key string, e Entry) {
	stored := e.clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	stored.StoredAt = c.now()
	if stored.FetchedAt.IsZero() {
		stored.FetchedAt = stored.StoredAt
	}
	c.entries[key] = stored
}

// Len reports how many keys are held, expired ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key builds a deterministic signature for a query. The market and
// bookmaker lists are trimmed, deduplicated and sorted, so equivalent
// parameter sets map to the same key.
func Key(namespace, endpoint string, markets, bookmakers []string) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(endpoint)
	b.WriteString("|m=")
	b.WriteString(strings.Join(canonical(markets), ","))
	b.WriteString("|b=")
	b.WriteString(strings.Join(canonical(bookmakers), ","))
	return b.String()
}

func canonical(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
