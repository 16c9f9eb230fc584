// Package cache implements WebPeel's two-tier response cache and its
// companion conditional-validator cache, grounded on the teacher's
// cache/cache.go (bounded map + background cleanup loop) with the LRU
// touch-on-read discipline borrowed from 64answer-httpcloak's
// transport/tls_cache.go PersistableSessionCache.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Entry is a cached response payload: opaque serialized bytes plus the
// bookkeeping the response cache needs for TTL and LRU eviction.
type Entry struct {
	Bytes     []byte
	CreatedAt time.Time
}

// L2Store is the optional shared-cache backend named by REDIS_URL in
// spec.md §6. No implementation ships in this module (see DESIGN.md):
// webpeel.New passes a nil L2Store, so the cache runs as L1 only; a
// deployment can supply a Redis-backed L2Store without changing
// ResponseCache's logic.
type L2Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
}

// ResponseCache is the L1 bounded LRU plus an optional L2 tier, keyed
// by the SHA-256 request fingerprint from internal/reqnorm.
type ResponseCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element // key -> node in order
	order      *list.List               // front = most recently used
	maxEntries int
	l1TTL      time.Duration

	l2           L2Store
	l2TTL        time.Duration
	l2Prefix     string
	l2CooldownAt time.Time
	l2Cooldown   time.Duration
}

type node struct {
	key   string
	entry *Entry
}

// New builds a ResponseCache. l2 may be nil, in which case the cache
// operates purely as an L1 LRU.
func New(maxEntries int, l1TTL, l2TTL, l2Cooldown time.Duration, l2 L2Store) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &ResponseCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		l1TTL:      l1TTL,
		l2:         l2,
		l2TTL:      l2TTL,
		l2Prefix:   "webpeel:response:",
		l2Cooldown: l2Cooldown,
	}
}

// Get performs the synchronous L1-only lookup (spec.md's plain `get`).
func (c *ResponseCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *ResponseCache) getLocked(key string) (*Entry, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	n := el.Value.(*node)
	if c.l1TTL > 0 && time.Since(n.entry.CreatedAt) > c.l1TTL {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return n.entry, true
}

// GetAsync is spec.md's `getAsync`: L1 first, falling back to L2 on
// miss and repopulating L1 on an L2 hit. L2 errors never fail the
// call — they simply count as a miss and enter the cooldown window.
func (c *ResponseCache) GetAsync(key string) (*Entry, bool) {
	if e, ok := c.Get(key); ok {
		return e, true
	}
	if !c.l2Available() {
		return nil, false
	}
	val, ok, err := c.l2.Get(c.l2Prefix + key)
	if err != nil {
		c.markL2Cooldown()
		return nil, false
	}
	if !ok {
		return nil, false
	}
	e := &Entry{Bytes: val, CreatedAt: time.Now()}
	c.setL1(key, e)
	return e, true
}

// Set performs the write-through: L1 synchronously, L2 fired off in a
// background goroutine (spec.md §4.7 "set populates L1 synchronously
// and fires L2 write asynchronously").
func (c *ResponseCache) Set(key string, value []byte) {
	e := &Entry{Bytes: value, CreatedAt: time.Now()}
	c.setL1(key, e)
	if c.l2Available() {
		go func() {
			if err := c.l2.Set(c.l2Prefix+key, value, c.l2TTL); err != nil {
				c.markL2Cooldown()
			}
		}()
	}
}

func (c *ResponseCache) setL1(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*node).entry = e
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.maxEntries {
		back := c.order.Back()
		if back != nil {
			c.order.Remove(back)
			delete(c.entries, back.Value.(*node).key)
		}
	}
	el := c.order.PushFront(&node{key: key, entry: e})
	c.entries[key] = el
}

func (c *ResponseCache) l2Available() bool {
	if c.l2 == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().After(c.l2CooldownAt)
}

func (c *ResponseCache) markL2Cooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.l2CooldownAt = time.Now().Add(c.l2Cooldown)
}

// Len reports the current L1 entry count, for tests and diagnostics.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
