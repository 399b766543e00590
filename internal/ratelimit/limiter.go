package ratelimit

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RateLimiter decides whether one more request fits in the current window for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Middleware rejects requests over the limit with 429. Limiter errors let the
// request through so that a Redis outage never blocks backend writes.
func Middleware(limiter RateLimiter, key string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}

		allowed, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			return c.Next()
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		}

		return c.Next()
	}
}
