package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// PreferenceHandler handles HTTP requests for notification preferences.
type PreferenceHandler struct {
	prefStore store.PreferenceStore
	logger    *zap.SugaredLogger
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(ps store.PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{
		prefStore: ps,
		logger:    logger.GetLogger().Named("PreferenceHandler"),
	}
}

// defaultPreference is what a user gets before ever saving preferences.
func defaultPreference(pref types.NotificationPreference) types.NotificationPreference {
	pref.RoutineReminderEnabled = false
	pref.RoutineReminderMinutes = 0
	pref.RoutineReminderTiming = types.ReminderTimingAtTime
	return pref
}

// GetPreferences handles GET /v1/preferences/notifications.
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	pref, err := h.prefStore.GetPreference(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, defaultPreference(types.NotificationPreference{UserID: userID}))
			return
		}
		h.logger.Errorw("Failed to get preferences", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, pref)
}

// UpdatePreferences handles PUT /v1/preferences/notifications.
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		RoutineReminderEnabled bool                 `json:"routine_reminder_enabled"`
		RoutineReminderMinutes int                  `json:"routine_reminder_minutes"`
		RoutineReminderTiming  types.ReminderTiming `json:"routine_notification_timing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	pref := &types.NotificationPreference{
		UserID:                 userID,
		RoutineReminderEnabled: req.RoutineReminderEnabled,
		RoutineReminderMinutes: req.RoutineReminderMinutes,
		RoutineReminderTiming:  req.RoutineReminderTiming,
	}
	if pref.RoutineReminderTiming == "" {
		pref.RoutineReminderTiming = types.ReminderTimingAtTime
	}
	if err := pref.Validate(); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid preferences", err.Error()))
		return
	}

	if err := h.prefStore.UpsertPreference(c.Request.Context(), pref); err != nil {
		h.logger.Errorw("Failed to update preferences", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, pref)
}
