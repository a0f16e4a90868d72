package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles order creation with a fixed window counter in
// Redis. Keyed by user id when authenticated, client IP otherwise.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

// OrderRateLimit is a router middleware for the order creation route.
// When Redis is unavailable requests pass through: throttling is a
// protection layer, not a dependency.
func (r *RateLimiter) OrderRateLimit() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "orderRateLimit",
		Func: func(e *core.RequestEvent) error {
			if r.redis == nil {
				return e.Next()
			}

			key := fmt.Sprintf("ratelimit:orders:%s", r.identifier(e))
			ctx := e.Request.Context()

			count, err := r.redis.Incr(ctx, key).Result()
			if err != nil {
				return e.Next()
			}
			if count == 1 {
				r.redis.Expire(ctx, key, r.window)
			}
			if count > int64(r.limit) {
				return apis.NewTooManyRequestsError("Rate limit exceeded. Please try again later.", nil)
			}

			return e.Next()
		},
	}
}

// BotFilter rejects requests from obvious scraping user agents before
// they reach the reservation path.
func (r *RateLimiter) BotFilter() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "botFilter",
		Func: func(e *core.RequestEvent) error {
			if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
				return apis.NewForbiddenError("Access denied", nil)
			}
			return e.Next()
		},
	}
}

func (r *RateLimiter) identifier(e *core.RequestEvent) string {
	if e.Auth != nil {
		return fmt.Sprintf("user:%s", e.Auth.Id)
	}
	return fmt.Sprintf("ip:%s", e.RealIP())
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	lower := strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
