package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		Client = nil
	})
	return mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	var missing payload
	found, err := GetJSON(ctx, "absent", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "key", payload{Name: "alpha", Count: 3}, time.Minute))

	var got payload
	found, err = GetJSON(ctx, "key", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "alpha", Count: 3}, got)
}

func TestCacheAside(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			calls++
			*dest = payload{Name: "fetched", Count: calls}
			return nil
		}
	}

	var first payload
	require.NoError(t, CacheAside(ctx, "aside", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "fetched", first.Name)

	// Second read is served from the cache.
	var second payload
	require.NoError(t, CacheAside(ctx, "aside", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	// Invalidation forces a refetch.
	Invalidate(ctx, "aside")
	var third payload
	require.NoError(t, CacheAside(ctx, "aside", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestHelpersWithoutClient(t *testing.T) {
	Client = nil
	ctx := context.Background()

	var dest payload
	found, err := GetJSON(ctx, "key", &dest)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, SetJSON(ctx, "key", payload{}, time.Minute))
	Invalidate(ctx, "key")

	// CacheAside degrades to a plain fetch.
	err = CacheAside(ctx, "key", &dest, time.Minute, func() error {
		dest = payload{Name: "direct"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", dest.Name)
}
