package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache for the catalog and slot availability.
// A nil *Cache is valid and caches nothing, which is how the service runs
// without Redis.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// get returns the raw cached value. A miss is not an error.
func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (c *Cache) del(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T

	b, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return out, false
	}

	// a broken entry counts as a miss and gets overwritten
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false
	}

	return out, true
}

// GetOrSetJSON returns the cached value under key, or runs loader once per
// key across concurrent callers and caches its result for ttl. An
// unreachable Redis falls through to loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return loader(ctx)
	}

	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}

	res, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return v, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(v); err == nil {
			_ = c.rdb.Set(ctx, key, b, ttl).Err()
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("repository.redis.GetOrSetJSON: cached %T for %s", res, key)
	}

	return v, nil
}

// InvalidateSlots drops the cached per-slot availability.
func (c *Cache) InvalidateSlots(ctx context.Context) error {
	return c.del(ctx, redisx.KeySlotAvailability())
}

func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	return c.del(ctx, redisx.KeyCatalog(true), redisx.KeyCatalog(false))
}
