// Package cache provides a bounded in-memory key/value store with per-entry
// time-to-live, shared by concurrent evaluations. Entries are independent and
// writes are idempotent overwrites, so no cross-entry coordination exists.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxSize bounds the number of live entries.
	DefaultMaxSize = 512

	// DefaultTTL is applied when Put is called without an explicit TTL.
	DefaultTTL = 5 * time.Minute
)

// Clock returns the current time. Injectable so tests can expire entries
// deterministically.
type Clock func() time.Time

type entry[V any] struct {
	value    V
	deadline time.Time
}

// Cache is a TTL'd LRU keyed by string. Safe for concurrent use.
type Cache[V any] struct {
	entries    *lru.Cache[string, entry[V]]
	defaultTTL time.Duration
	now        Clock
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock replaces the time source.
func WithClock[V any](now Clock) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// WithDefaultTTL replaces the TTL used by Put.
func WithDefaultTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		c.defaultTTL = ttl
	}
}

// New creates a cache holding at most maxSize entries. maxSize <= 0 selects
// DefaultMaxSize.
func New[V any](maxSize int, opts ...Option[V]) (*Cache[V], error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	entries, err := lru.New[string, entry[V]](maxSize)
	if err != nil {
		return nil, err
	}

	c := &Cache[V]{
		entries:    entries,
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get returns the live value for key. Expired entries are evicted on read and
// reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	e, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.deadline) {
		c.entries.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the default TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.PutTTL(key, value, c.defaultTTL)
}

// PutTTL stores value under key, expiring after ttl. Non-positive ttl falls
// back to the default.
func (c *Cache[V]) PutTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.entries.Add(key, entry[V]{value: value, deadline: c.now().Add(ttl)})
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.entries.Remove(key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
}

// Len returns the number of live (non-expired) entries.
func (c *Cache[V]) Len() int {
	n := 0
	for _, key := range c.entries.Keys() {
		if _, ok := c.Get(key); ok {
			n++
		}
	}
	return n
}

// Key builds a stable cache key from its parts. Parts are hashed with a null
// byte delimiter to prevent collisions between adjacent parts.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
