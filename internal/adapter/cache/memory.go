package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback cache store: TTL per entry plus
// LRU eviction under capacity pressure. Same TTL semantics as the shared
// store, so callers never notice which one is active.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	order   []string // oldest first
	maxSize int
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates a store holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false, nil
	}
	c.moveToEnd(key)
	return entry.value, true, nil
}

func (c *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
		c.moveToEnd(key)
		return nil
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.order = append(c.order, key)
	return nil
}

func (c *MemoryStore) Name() string { return "memory" }

// Size returns the current entry count.
func (c *MemoryStore) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryStore) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *MemoryStore) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *MemoryStore) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
