package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/checkout-pricing/internal/common"
)

// Handler rejects callers that exceeded their window with 429 before the
// request reaches the checkout handlers.
type Handler struct {
	Limiter Limiter
	Key     func(*http.Request) string
	// OnError observes limiter failures. Requests are let through when the
	// limiter cannot decide.
	OnError func(error)
	Now     func() time.Time
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Middleware applies the limit keyed by h.Key.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := h.Limiter.Allow(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(max(decision.Limit, 0)))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		retryAfter := int(decision.ResetAt.Sub(h.now()).Round(time.Second) / time.Second)
		retryAfter = max(retryAfter, 1)
		headers.Set("Retry-After", strconv.Itoa(retryAfter))
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded",
			map[string]any{"retryAfterSeconds": retryAfter})
	})
}
