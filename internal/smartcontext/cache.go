// Package smartcontext implements the Smart Context Manager (spec §4.4):
// a fast heuristic pass over the workspace, an optional AI-enhancement
// hook, and a bounded LRU cache. Grounded on the teacher's
// internal/cache.DedupeCache (insertion-ordered eviction under a mutex)
// and internal/rag/context.Injector (a narrow interface around an
// otherwise heavyweight collaborator, here the enhancement hook).
package smartcontext

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/ollamageek/gateway/pkg/models"
)

const cacheCapacity = 100

// lru is a fixed-capacity cache keyed by hash(content[:100], taskType),
// evicting the oldest insertion when full (spec §3/§4.4).
type lru struct {
	mu      sync.Mutex
	entries map[string]models.Context
	order   []string
}

func newLRU() *lru {
	return &lru{entries: make(map[string]models.Context)}
}

// CacheKey computes the cache key for a request's content and task type
// (spec §3: "hash(first-100-chars-of-prompt, taskType)").
func CacheKey(content string, taskType models.TaskType) string {
	prefix := content
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	sum := sha256.Sum256([]byte(prefix + "|" + string(taskType)))
	return hex.EncodeToString(sum[:])
}

func (c *lru) get(key string) (models.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *lru) put(key string, value models.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value

	for len(c.order) > cacheCapacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// size reports the number of cached entries (test/debug helper).
func (c *lru) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
