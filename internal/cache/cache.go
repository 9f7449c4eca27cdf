package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache is a bounded in-process cache with a fixed TTL per entry.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func New(maxCost int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

func (c *Cache) Get(key string) (any, bool) { return c.c.Get(key) }

// Set stores val. Writes are buffered; call Wait when a following Get must see it.
func (c *Cache) Set(key string, val any) { c.c.SetWithTTL(key, val, 1, c.ttl) }

func (c *Cache) Del(key string) { c.c.Del(key) }

func (c *Cache) Wait() { c.c.Wait() }

// Clear drops every entry, used when a change can affect any key
func (c *Cache) Clear() { c.c.Clear() }

func (c *Cache) Close() { c.c.Close() }
