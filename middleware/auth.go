package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/config"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
)

// supabaseClaims is the subset of Supabase access token claims we use.
// Identity comes from the registered "sub" claim; the rest is informational.
type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the Bearer token on user-facing routes and stores
// the authenticated user's ID in the gin context under UserIDKey.
//
// Tokens are Supabase-issued HS256 JWTs verified against the shared secret.
func AuthMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			_ = c.Error(apperrors.AuthenticationFailed("Authorization required"))
			c.Abort()
			return
		}

		userID, err := validateAccessToken(token, cfg.JWTSecret)
		if err != nil {
			log.Warnw("Invalid access token",
				"error", err,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP())
			_ = c.Error(apperrors.AuthenticationFailed("Invalid authentication token"))
			c.Abort()
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Next()
	}
}

// validateAccessToken verifies the token signature and expiry and returns the
// user ID from the subject claim.
func validateAccessToken(tokenString, secret string) (uuid.UUID, error) {
	claims := &supabaseClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("token has no subject claim")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject claim is not a valid user ID: %w", err)
	}
	return userID, nil
}
