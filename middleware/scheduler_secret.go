package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/modular-health/modular-health-backend/config"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
)

// SchedulerSecretHeader carries the shared secret on job trigger requests.
const SchedulerSecretHeader = "X-Scheduler-Secret"

// SchedulerAuth guards the job trigger endpoints. They are called by an
// external scheduler, not by users, so they authenticate with a shared
// secret header instead of a user token.
func SchedulerAuth(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(SchedulerSecretHeader)
		if provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.SchedulerSecret)) != 1 {
			logger.GetLogger().Warnw("Rejected job trigger with bad scheduler secret",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			_ = c.Error(apperrors.AuthenticationFailed("Invalid scheduler credentials"))
			c.Abort()
			return
		}
		c.Next()
	}
}
