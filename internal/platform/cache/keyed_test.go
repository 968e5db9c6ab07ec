package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestKeyed(t *testing.T) *Keyed {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewKeyed(client, "test:", time.Minute)
}

func TestKeyedGetMissing(t *testing.T) {
	k := newTestKeyed(t)
	_, ok, err := k.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeyedSetGetInvalidate(t *testing.T) {
	k := newTestKeyed(t)
	ctx := context.Background()

	require.NoError(t, k.Set(ctx, "payment-account:cash", "10100"))

	val, ok, err := k.Get(ctx, "payment-account:cash")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "10100", val)

	require.NoError(t, k.Invalidate(ctx, "payment-account:cash"))

	_, ok, err = k.Get(ctx, "payment-account:cash")
	require.NoError(t, err)
	require.False(t, ok)
}
