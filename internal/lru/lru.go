// Package lru provides the bounded, concurrency-safe cache the searcher
// uses for short-token (< 3 byte) lookups, per spec §4.9 ("cache the most
// recent K=64 lookups for short tokens") and §5 ("any thread may install
// an entry; races yield identical values").
package lru

import (
	"sync"

	hashicorplru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a fixed-capacity, thread-safe least-recently-used cache.
// hashicorp/golang-lru/v2's Cache is already internally locked, but we
// wrap it so Searcher only depends on the two operations spec §4.9 needs
// and so the "install races yield identical values" guarantee is
// explicit: GetOrAdd never overwrites a value a concurrent caller already
// installed for the same key.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	inner *hashicorplru.Cache[K, V]
}

// New returns a cache bounded to capacity entries. capacity must be > 0.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	inner, err := hashicorplru.New[K, V](capacity)
	if err != nil {
		// Only returned by the library for capacity <= 0, which is a
		// programmer error (spec §9: "reserved for programmer errors").
		panic(err)
	}
	return &Cache[K, V]{inner: inner}
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Get(key)
}

// GetOrAdd returns the cached value for key if present; otherwise it
// calls compute, stores the result, and returns it. Concurrent callers
// racing on the same missing key converge on whichever value was
// installed first.
func (c *Cache[K, V]) GetOrAdd(key K, compute func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.inner.Get(key); ok {
		return v
	}
	v := compute()
	c.inner.Add(key, v)
	return v
}

// Clear empties the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}
