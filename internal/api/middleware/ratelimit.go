package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pharmacy/backoffice/internal/api/metrics"
	"github.com/pharmacy/backoffice/internal/infrastructure/db/redis"
)

// Limiter decides whether one more hit for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (redis.LimitResult, error)
}

// RateLimit throttles requests per client IP and route. A limiter failure
// lets the request through.
func RateLimit(l Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + ":" + c.Path()
			res, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				metrics.RateLimitedTotal.Inc()
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
