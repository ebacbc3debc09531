package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/middleware"
)

// requireUserID extracts the authenticated user's ID from the context.
// On failure the error response is already attached to the context.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		_ = c.Error(apperrors.AuthenticationFailed("Authentication required"))
		return uuid.Nil, false
	}
	return userID, true
}

// parseIDParam parses a UUID path parameter.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid ID", "path parameter "+name+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
