package memory

import (
	"context"
	"sync"
	"time"

	"cryptospread/internal/cache"
	"cryptospread/internal/merge"
)

type entry struct {
	expiresAt time.Time
	rows      []merge.Row
}

// Cache is an in-process PriceCache with per-entry expiry. It is the
// default when no Redis address is configured.
type Cache struct {
	MaxItems int

	mu    sync.RWMutex
	items map[string]entry
}

var _ cache.PriceCache = (*Cache)(nil)

func New(maxItems int) *Cache {
	return &Cache{MaxItems: maxItems, items: make(map[string]entry)}
}

func (c *Cache) Get(ctx context.Context, asset string) ([]merge.Row, bool, error) {
	c.mu.RLock()
	e, ok := c.items[asset]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.rows, true, nil
}

func (c *Cache) Set(ctx context.Context, asset string, rows []merge.Row, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[asset] = entry{expiresAt: time.Now().Add(ttl), rows: rows}
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		// evict expired first, then arbitrary keys until under limit
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
			if len(c.items) <= c.MaxItems {
				break
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			delete(c.items, k)
		}
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, asset string) error {
	c.mu.Lock()
	delete(c.items, asset)
	c.mu.Unlock()
	return nil
}
