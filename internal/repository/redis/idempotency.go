package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/redis/go-redis/v9"
)

const (
	idemLocked    = "LOCK"
	idemResultTag = "RES:"
)

// IdempotencyStore remembers the response of a mutating request under a
// client supplied key. A key holds either "LOCK" while the first request is
// in flight or "RES:<json>" once it finished.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin claims key within scope for one request.
//
// Returns:
//   - the stored response when an earlier request with the same key finished.
//   - acquired=true when the caller owns the key and must Finish or Abort it.
//   - acquired=false with no response while another request holds the key.
func (s *IdempotencyStore) Begin(
	ctx context.Context,
	scope, key string,
	lockTTL time.Duration,
) (replay []byte, acquired bool, err error) {
	const op = "repository.redis.IdempotencyStore.Begin"

	k := redisx.KeyIdempotency(scope, key)

	if payload, ok, err := s.result(ctx, k); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	} else if ok {
		return payload, false, nil
	}

	acquired, err = s.rdb.SetNX(ctx, k, idemLocked, lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if acquired {
		return nil, true, nil
	}

	// lost the race, the winner may already be done
	payload, _, err := s.result(ctx, k)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return payload, false, nil
}

// Finish stores the response for replay until the store TTL expires.
func (s *IdempotencyStore) Finish(ctx context.Context, scope, key string, payload []byte) error {
	const op = "repository.redis.IdempotencyStore.Finish"

	if err := s.rdb.Set(ctx, redisx.KeyIdempotency(scope, key), idemResultTag+string(payload), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Abort frees the key so the client can retry a failed request.
func (s *IdempotencyStore) Abort(ctx context.Context, scope, key string) error {
	const op = "repository.redis.IdempotencyStore.Abort"

	if err := s.rdb.Del(ctx, redisx.KeyIdempotency(scope, key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *IdempotencyStore) result(ctx context.Context, k string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	payload, ok := strings.CutPrefix(v, idemResultTag)
	if !ok {
		return nil, false, nil
	}
	return []byte(payload), true, nil
}
