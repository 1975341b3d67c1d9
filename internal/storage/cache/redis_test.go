package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/tenant-inventory/internal/storage/cache"
)

func newRedisStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStore(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round trip values and report misses", func(t *testing.T) {
		store, _ := newRedisStore(t)

		_, ok, err := store.Get(ctx, "inv:s:products:list")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, "inv:s:products:list", []byte(`{"total":1}`), time.Minute))
		got, ok, err := store.Get(ctx, "inv:s:products:list")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"total":1}`, string(got))
	})

	t.Run("Should expire entries after their ttl", func(t *testing.T) {
		store, mr := newRedisStore(t)
		require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))

		mr.FastForward(2 * time.Second)

		_, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should delete only keys under the prefix", func(t *testing.T) {
		store, mr := newRedisStore(t)
		for _, k := range []string{"inv:a:products:list", "inv:a:products:id?id=1", "inv:ab:products:list"} {
			require.NoError(t, store.Set(ctx, k, []byte("v"), time.Minute))
		}

		n, err := store.DeletePrefix(ctx, "inv:a:products:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, mr.Exists("inv:ab:products:list"))

		n, err = store.DeletePrefix(ctx, "inv:a:products:")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("Should store only while the generation is unchanged", func(t *testing.T) {
		store, mr := newRedisStore(t)

		gen, err := store.Generation(ctx, "inv:gen:a:products")
		require.NoError(t, err)
		assert.Equal(t, int64(0), gen)

		stored, err := store.SetIfGeneration(ctx, "inv:gen:a:products", 0, "inv:a:products:list", []byte("v1"), time.Minute)
		require.NoError(t, err)
		assert.True(t, stored)
		assert.Equal(t, time.Minute, mr.TTL("inv:a:products:list"))

		gen, err = store.IncrGeneration(ctx, "inv:gen:a:products")
		require.NoError(t, err)
		assert.Equal(t, int64(1), gen)

		stored, err = store.SetIfGeneration(ctx, "inv:gen:a:products", 0, "inv:a:products:list", []byte("v0"), time.Minute)
		require.NoError(t, err)
		assert.False(t, stored)

		got, _, err := store.Get(ctx, "inv:a:products:list")
		require.NoError(t, err)
		assert.Equal(t, "v1", string(got))
	})

	t.Run("Should treat deleting a missing key as success", func(t *testing.T) {
		store, _ := newRedisStore(t)
		assert.NoError(t, store.Delete(ctx, "missing"))
	})
}
