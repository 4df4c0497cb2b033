package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a fixed window, in-process limiter used when no Redis is
// configured.
type MemoryLimiter struct {
	limiter *limiter.Limiter
}

// NewMemoryLimiter allows max requests per window for each key.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	store := memory.NewStore()
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return &MemoryLimiter{limiter: limiter.New(store, rate)}
}

// Allow consumes one request for key.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	lctx, err := l.limiter.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: memory store: %w", err)
	}
	return Decision{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		ResetAt:   time.Unix(lctx.Reset, 0),
	}, nil
}
