package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/services"
)

// RateLimiter limits requests per client using the Redis-backed rate limit
// service. Authenticated requests are keyed by user ID, anonymous ones by
// client IP. Redis being unavailable fails open: the API stays up without
// rate limiting rather than rejecting everything.
func RateLimiter(limiter services.RateLimiterInterface, requestsPerWindow int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			key = userID.String()
		}

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, requestsPerWindow, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			if retryAfter <= 0 {
				retryAfter = window
			}
			seconds := int(retryAfter.Seconds())
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerWindow))
			_ = c.Error(apperrors.RateLimitExceeded("Too many requests", seconds))
			c.Abort()
			return
		}

		c.Next()
	}
}
