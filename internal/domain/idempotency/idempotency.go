// Package idempotency remembers which plan an idempotency key produced so a
// retried generation request returns the same plan.
package idempotency

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50_000

// Cache maps idempotency keys to plan ids.
type Cache interface {
	// Lookup returns the plan id recorded for key.
	Lookup(ctx context.Context, key string) (string, bool)

	// Remember records planID for key unless key is already known. It returns
	// the plan id that is now associated with key and whether it was newly
	// stored.
	Remember(ctx context.Context, key, planID string) (string, bool)

	// Forget drops key so a failed request can be retried.
	Forget(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key    string
	planID string
}

// inMemoryCache keeps keys in insertion order and evicts the oldest when
// bounded. With maxSize <= 0 it never evicts.
type inMemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryCache creates a cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	return c
}

func (c *inMemoryCache) Lookup(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		return el.Value.(*entry).planID, true
	}
	return "", false
}

func (c *inMemoryCache) Remember(_ context.Context, key, planID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		return el.Value.(*entry).planID, false
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, planID: planID})
	c.size.Add(1)
	return planID, true
}

func (c *inMemoryCache) Forget(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
		c.size.Add(-1)
	}
}

// evictOldest must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
	c.size.Add(-1)
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
