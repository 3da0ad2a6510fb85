package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryKVSetGetDelete(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	require.NoError(t, kv.Set(ctx, "a", []byte("1"), 0))
	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	// 返回副本，修改不影响存储
	got[0] = 'x'
	again, _ := kv.Get(ctx, "a")
	assert.Equal(t, []byte("1"), again)

	require.NoError(t, kv.Delete(ctx, "a", "missing"))
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	kv := NewMemoryKV().WithClock(clock.now)

	require.NoError(t, kv.Set(ctx, "short", []byte("s"), time.Minute))
	require.NoError(t, kv.Set(ctx, "forever", []byte("f"), 0))

	clock.advance(59 * time.Second)
	_, err := kv.Get(ctx, "short")
	require.NoError(t, err)

	clock.advance(time.Second)
	_, err = kv.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	keys, err := kv.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"forever"}, keys)

	assert.Equal(t, 2, kv.Len())
	assert.Equal(t, 1, kv.Sweep(ctx))
	assert.Equal(t, 1, kv.Len())
}

func TestMemoryKVKeysPattern(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	for _, k := range []string{"workflow:exec:1", "workflow:exec:2", "workflow:session:s1", "other"} {
		require.NoError(t, kv.Set(ctx, k, []byte("v"), 0))
	}

	keys, err := kv.Keys(ctx, "workflow:exec:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"workflow:exec:1", "workflow:exec:2"}, keys)

	keys, err = kv.Keys(ctx, "workflow:*")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}
