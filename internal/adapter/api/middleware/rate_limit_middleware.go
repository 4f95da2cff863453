package middleware

import (
	"fmt"
	"math"

	"github.com/labstack/echo/v4"

	"flatmate/internal/infrastructure/ratelimit"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
	"flatmate/pkg/response"
)

// RateLimit limits action per authenticated user, or per client IP before
// authentication has run.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			if allowed, wait := limiter.Allow(key, action); !allowed {
				logger.Warn("RATE LIMIT: %s blocked on %s (retry in %v)", key, action, wait)
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(math.Ceil(wait.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
