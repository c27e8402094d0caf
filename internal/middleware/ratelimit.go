package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/country-cache/internal/config"
)

// NewRateLimiter returns a fixed-window limiter keyed on client IP and
// route. The window counter lives in Redis so multiple instances share one
// budget. Redis errors fail open: the request proceeds rather than being
// rejected on infrastructure trouble.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}

	windowSecs := int64(cfg.Window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			window := time.Now().Unix() / windowSecs
			key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, c.Path(), c.RealIP(), window)

			ctx := c.Request().Context()
			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				_ = rdb.Expire(ctx, key, cfg.Window).Err()
			}

			remaining := int64(cfg.Max) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Max) {
				retryAfter := windowSecs - (time.Now().Unix() % windowSecs)
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many requests"})
			}
			return next(c)
		}
	}
}
