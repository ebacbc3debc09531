package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// contextKey defines a type for context keys to avoid collisions.
type contextKey string

// Defines context keys used within the application middleware and handlers.
const (
	// UserIDKey is the context key for the authenticated user's ID (uuid.UUID).
	UserIDKey contextKey = "user_id"
)

// GetUserID extracts the authenticated user's ID from the gin context.
// The second return value is false when the request was not authenticated.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(string(UserIDKey))
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
