package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStoreFromClient(client), mr
}

func TestGetSetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user:1", `{"id":"1"}`, NoTTL))

	val, err := store.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1"}`, val)
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetNXReservation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "handle:alice", "1", NoTTL)
	require.NoError(t, err)
	assert.True(t, ok, "first reservation should win")

	ok, err = store.SetNX(ctx, "handle:alice", "2", NoTTL)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation should lose")

	val, err := store.Get(ctx, "handle:alice")
	require.NoError(t, err)
	assert.Equal(t, "1", val, "losing write must not clobber the winner")
}

func TestGetDelSingleUse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pwreset:tok", "1", time.Minute))

	val, err := store.GetDel(ctx, "pwreset:tok")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	_, err = store.GetDel(ctx, "pwreset:tok")
	assert.ErrorIs(t, err, ErrNotFound, "token must be consumed on first read")
}

func TestIncrCreatesAndCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	n, err := store.Incr(ctx, "rl:post:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "rl:post:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ban-status:9", "false", 60*time.Second))

	mr.FastForward(61 * time.Second)

	_, err := store.Get(ctx, "ban-status:9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireExistingKey(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session:abc", "1", NoTTL))
	require.NoError(t, store.Expire(ctx, "session:abc", time.Second))

	mr.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMGetSkipsMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "post:1", "a", NoTTL))
	require.NoError(t, store.Set(ctx, "post:3", "c", NoTTL))

	got, err := store.MGet(ctx, []string{"post:1", "post:2", "post:3"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"post:1": "a", "post:3": "c"}, got)
}

func TestMGetEmptyInput(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.MGet(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeysPrefixAndLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "term:go:1", "1", NoTTL))
	require.NoError(t, store.Set(ctx, "term:go:2", "1", NoTTL))
	require.NoError(t, store.Set(ctx, "term:go:3", "1", NoTTL))
	require.NoError(t, store.Set(ctx, "term:rust:1", "1", NoTTL))

	keys, err := store.Keys(ctx, "term:go:", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"term:go:1", "term:go:2", "term:go:3"}, keys)

	limited, err := store.Keys(ctx, "term:go:", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteIgnoresMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "post:1", "a", NoTTL))
	require.NoError(t, store.Delete(ctx, "post:1", "post:2"))

	_, err := store.Get(ctx, "post:1")
	assert.ErrorIs(t, err, ErrNotFound)
}
