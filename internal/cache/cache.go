// Package cache holds the in-process caches: a keyed cache with an optional
// entry limit for rendered previews and stylesheets, and a single-value memo
// with a TTL for computed responses.
package cache

import (
	"sync"
	"time"
)

// Cache maps keys to values. When a limit is set the oldest inserted entry
// is evicted to make room.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	limit int
	items map[K]V
	order []K
}

// New returns a cache holding at most limit entries. A limit <= 0 means no
// limit.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return &Cache[K, V]{
		limit: limit,
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

func (c *Cache[K, V]) set(key K, value V) {
	if _, ok := c.items[key]; !ok {
		if c.limit > 0 && len(c.order) >= c.limit {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = value
}

// GetOrLoad returns the value for key, storing the result of load on a miss.
// Loads run under the cache lock, so concurrent misses load once.
func (c *Cache[K, V]) GetOrLoad(key K, load func() V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, true
	}
	v := load()
	c.set(key, v)
	return v, false
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
	c.order = nil
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Memo holds a single computed value for at most ttl. Concurrent callers
// that miss wait on the same computation.
type Memo[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	value   V
	expires time.Time
	valid   bool
}

func NewMemo[V any](ttl time.Duration) *Memo[V] {
	return &Memo[V]{ttl: ttl, now: time.Now}
}

// Get returns the memoized value, calling load when it is missing or stale.
// A failed load is not memoized.
func (m *Memo[V]) Get(load func() (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.now().Before(m.expires) {
		return m.value, nil
	}

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	m.value = v
	m.expires = m.now().Add(m.ttl)
	m.valid = true
	return v, nil
}

func (m *Memo[V]) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = false
}
