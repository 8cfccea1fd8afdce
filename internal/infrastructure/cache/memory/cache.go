// Package memory holds the in-process answer cache. Keys are content hashes
// of the normalized query, so queries differing only in case or padding share
// one entry. Eviction is strict insertion-order FIFO: a read never refreshes
// recency.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

const DefaultCapacity = 128

type AnswerCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

func NewAnswerCache(capacity int) *AnswerCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &AnswerCache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
		order:    make([]string, 0, capacity),
	}
}

func (c *AnswerCache) Get(query string) (string, bool) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	answer, ok := c.entries[key]
	return answer, ok
}

// Put inserts (or refreshes the value of) the normalized query. Eviction and
// insertion run under one lock so the cache can never be observed over
// capacity or in a torn state.
func (c *AnswerCache) Put(query, answer string) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// Value update keeps the original insertion position.
		c.entries[key] = answer
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = answer
	c.order = append(c.order, key)
}

func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
