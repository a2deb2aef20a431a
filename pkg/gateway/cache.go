package gateway

import (
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xraph-labs/nexus-registry/pkg/registry"
)

// LRUCache is a registry.Cache backed by an in-process bounded LRU,
// used by Client to avoid re-fetching unchanged schema bodies on every
// route recomputation.
type LRUCache struct {
	mu    sync.Mutex
	inner *lru.Cache[string, json.RawMessage]
}

// NewLRUCache builds a cache holding up to size entries. size must be
// positive; callers size it to the expected number of distinct schemas
// a gateway composes, not the number of service instances.
func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, json.RawMessage](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{inner: c}, nil
}

func (c *LRUCache) Get(hash string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Get(hash)
}

func (c *LRUCache) Set(hash string, schema json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(hash, schema)
	return nil
}

func (c *LRUCache) Delete(hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(hash)
	return nil
}

func (c *LRUCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
	return nil
}

func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

var _ registry.Cache = (*LRUCache)(nil)
