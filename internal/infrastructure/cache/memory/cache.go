package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

const DefaultCapacity = 1000

type entry struct {
	candidates []domain.Candidate
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a bounded in-process result cache. Expiry is checked lazily on
// read; capacity pressure evicts the oldest entry by insertion time. There is
// no background sweep.
type Cache struct {
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	order   []string
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]domain.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(key)
		return nil, false
	}
	return e.candidates, true
}

func (c *Cache) Set(_ context.Context, key string, candidates []domain.Candidate, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.remove(key)
	}
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.remove(c.order[0])
	}

	now := c.now()
	c.entries[key] = entry{
		candidates: candidates,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
	c.order = append(c.order, key)
}

// Len reports the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove assumes c.mu is held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
