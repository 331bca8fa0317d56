package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// Limit charges one action to the authenticated user, falling back to the
// client IP when the route is not behind Authenticate.
func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.limiter == nil {
				return next(c)
			}

			key := UID(c)
			if key == "" {
				key = c.RealIP()
			}

			if ok, wait := m.limiter.Allow(key, action); !ok {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", key, action, wait)
				return response.Error(c, errors.TooManyRequests(
					fmt.Sprintf("Rate limit exceeded, retry in %ds", int(wait.Seconds()+0.5))))
			}

			return next(c)
		}
	}
}
