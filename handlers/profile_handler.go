package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/services"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// ProfileHandler handles HTTP requests for profile settings.
type ProfileHandler struct {
	profileStore store.ProfileStore
	logger       *zap.SugaredLogger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(ps store.ProfileStore) *ProfileHandler {
	return &ProfileHandler{
		profileStore: ps,
		logger:       logger.GetLogger().Named("ProfileHandler"),
	}
}

// GetTimezone handles GET /v1/profile/timezone. A user without a profile row
// gets the default zone, mirroring what the scheduler uses for them.
func (h *ProfileHandler) GetTimezone(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	profile, err := h.profileStore.GetProfile(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Errorw("Failed to get profile", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timezone": services.ResolveTimezone(profile),
	})
}

// UpdateTimezone handles PUT /v1/profile/timezone.
func (h *ProfileHandler) UpdateTimezone(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.TimezoneUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid timezone", "timezone must be a valid IANA zone name"))
		return
	}

	if err := h.profileStore.UpsertTimezone(c.Request.Context(), userID, req.Timezone); err != nil {
		h.logger.Errorw("Failed to update timezone", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"timezone": req.Timezone})
}
