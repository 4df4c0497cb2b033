package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiterSlidingWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	window := 2 * time.Second
	limit := 2
	limiter := RedisLimiter{Client: client, Prefix: "test:", Window: window, Max: limit}

	ctx := context.Background()
	for i := 0; i < limit; i++ {
		decision, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d", i)
		require.Equal(t, limit-(i+1), decision.Remaining)
	}

	decision, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Zero(t, decision.Remaining)

	mr.FastForward(window)

	decision, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestRedisLimiterSlidesWithClock(t *testing.T) {
	_, client := newTestRedis(t)
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	limiter := RedisLimiter{
		Client: client,
		Prefix: "clock:",
		Window: 10 * time.Second,
		Max:    2,
		Now:    func() time.Time { return now },
	}
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	now = now.Add(6 * time.Second)
	d, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.WithinDuration(t, now.Add(4*time.Second), d.ResetAt, time.Millisecond)

	// the first request leaves the window; the rejected one was never kept
	now = now.Add(5 * time.Second)
	d, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, d.Remaining)

	n, err := client.ZCard(ctx, "clock:10.0.0.1").Result()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestRedisLimiterKeysAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := RedisLimiter{Client: client, Prefix: "ind:", Window: time.Minute, Max: 1}
	ctx := context.Background()

	a, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	b, err := limiter.Allow(ctx, "b")
	require.NoError(t, err)
	require.True(t, a.Allowed)
	require.True(t, b.Allowed)
}

func TestRedisLimiterDisabledWithoutClient(t *testing.T) {
	decision, err := RedisLimiter{Window: time.Second, Max: 1}.Allow(context.Background(), "key")
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}
