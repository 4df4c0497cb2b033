package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding window limiter over Redis sorted sets, so every
// API replica pointed at the same Redis shares one budget per client.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
	Now    func() time.Time
}

func (l RedisLimiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records one request for key. Rejected requests are removed again so
// they do not extend the caller's lockout.
func (l RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Limit: l.Max, Remaining: l.Max, ResetAt: now.Add(l.Window)}, nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-l.Window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Limit: l.Max, ResetAt: now.Add(l.Window)}, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}

	resetAt := now.Add(l.Window)
	if oldest := oldestCmd.Val(); len(oldest) == 1 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(l.Window)
	}

	current := int(countCmd.Val())
	if current > l.Max {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Decision{Limit: l.Max, ResetAt: resetAt}, fmt.Errorf("ratelimit: redis zrem: %w", err)
		}
		return Decision{Allowed: false, Limit: l.Max, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.Max,
		Remaining: l.Max - current,
		ResetAt:   resetAt,
	}, nil
}
