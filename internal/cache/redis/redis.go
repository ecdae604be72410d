package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cryptospread/internal/cache"
	"cryptospread/internal/merge"
)

// Cache implements PriceCache on Redis so several server replicas share
// one merged-list cache.
type Cache struct {
	client *redis.Client
	prefix string
}

var _ cache.PriceCache = (*Cache)(nil)

func New(ctx context.Context, addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, prefix: "prices:"}, nil
}

func (c *Cache) key(asset string) string { return c.prefix + asset }

func (c *Cache) Get(ctx context.Context, asset string) ([]merge.Row, bool, error) {
	data, err := c.client.Get(ctx, c.key(asset)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rows []merge.Row
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *Cache) Set(ctx context.Context, asset string, rows []merge.Row, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(asset), data, ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, asset string) error {
	return c.client.Del(ctx, c.key(asset)).Err()
}

func (c *Cache) Close() error { return c.client.Close() }
