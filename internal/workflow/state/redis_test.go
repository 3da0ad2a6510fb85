package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisKV(t *testing.T) (*RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client), mr
}

func TestRedisKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv, _ := setupRedisKV(t)

	require.NoError(t, kv.Set(ctx, "workflow:exec:1", []byte(`{"a":1}`), 0))
	got, err := kv.Get(ctx, "workflow:exec:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, kv.Delete(ctx, "workflow:exec:1"))
	_, err = kv.Get(ctx, "workflow:exec:1")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisKVTTL(t *testing.T) {
	ctx := context.Background()
	kv, mr := setupRedisKV(t)

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 10*time.Second))
	assert.Equal(t, 10*time.Second, mr.TTL("k"))

	mr.FastForward(11 * time.Second)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisKVKeysScan(t *testing.T) {
	ctx := context.Background()
	kv, _ := setupRedisKV(t)

	for _, k := range []string{"workflow:exec:b", "workflow:exec:a", "workflow:session:x"} {
		require.NoError(t, kv.Set(ctx, k, []byte("v"), 0))
	}

	keys, err := kv.Keys(ctx, "workflow:exec:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"workflow:exec:a", "workflow:exec:b"}, keys)

	require.NoError(t, kv.Delete(ctx))
}
