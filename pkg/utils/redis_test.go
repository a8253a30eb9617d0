package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAcquireLease_Exclusive(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()

	ok, err := AcquireLease(ctx, rdb, "lease:call:42", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lease:call:42"))

	ok, err = AcquireLease(ctx, rdb, "lease:call:42", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held lease")
}

func TestReleaseLease_OnlyByOwner(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()

	_, err := AcquireLease(ctx, rdb, "lease:x", "a", time.Minute)
	require.NoError(t, err)

	require.NoError(t, ReleaseLease(ctx, rdb, "lease:x", "b"))
	assert.True(t, mr.Exists("lease:x"), "foreign owner must not release")

	require.NoError(t, ReleaseLease(ctx, rdb, "lease:x", "a"))
	assert.False(t, mr.Exists("lease:x"))
}

func TestAcquireLease_Expires(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()

	_, err := AcquireLease(ctx, rdb, "lease:y", "a", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	ok, err := AcquireLease(ctx, rdb, "lease:y", "b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireLease_ValidatesArgs(t *testing.T) {
	_, rdb := newMiniRedis(t)
	ctx := context.Background()

	_, err := AcquireLease(ctx, nil, "k", "a", time.Second)
	assert.Error(t, err)
	_, err = AcquireLease(ctx, rdb, "", "a", time.Second)
	assert.Error(t, err)
	_, err = AcquireLease(ctx, rdb, "k", "", time.Second)
	assert.Error(t, err)
	_, err = AcquireLease(ctx, rdb, "k", "a", 0)
	assert.Error(t, err)
}
