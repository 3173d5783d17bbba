package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Cache

	calls := 0
	got, err := GetOrSetJSON(context.Background(), c, "k", time.Minute, func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, calls)

	_, ok, err := c.get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.InvalidateSlots(context.Background()))
	assert.NoError(t, c.InvalidateCatalog(context.Background()))
}

func TestNilCacheLoaderError(t *testing.T) {
	var c *Cache
	boom := errors.New("boom")

	_, err := GetOrSetJSON(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestToInt(t *testing.T) {
	assert.EqualValues(t, 7, toInt(int64(7)))
	assert.EqualValues(t, 3, toInt(3))
	assert.EqualValues(t, 12, toInt("12"))
	assert.EqualValues(t, 0, toInt(nil))
}

func TestLimiterDisabledAllows(t *testing.T) {
	l := NewSlidingWindowLimiter(nil, "order", 0, time.Minute)

	allowed, _, _, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}
