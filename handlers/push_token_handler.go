package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// PushTokenHandler handles HTTP requests for push token registration.
type PushTokenHandler struct {
	tokenStore store.PushTokenStore
	logger     *zap.SugaredLogger
}

// NewPushTokenHandler creates a new PushTokenHandler.
func NewPushTokenHandler(ts store.PushTokenStore) *PushTokenHandler {
	return &PushTokenHandler{
		tokenStore: ts,
		logger:     logger.GetLogger().Named("PushTokenHandler"),
	}
}

// RegisterToken handles POST /v1/push-tokens. Re-registering an existing
// token reactivates it.
func (h *PushTokenHandler) RegisterToken(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	token := &types.PushToken{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: types.DeviceType(req.DeviceType),
		IsActive:   true,
	}
	if err := h.tokenStore.Register(c.Request.Context(), token); err != nil {
		h.logger.Errorw("Failed to register push token",
			"userID", userID,
			"token", logger.MaskSensitiveString(req.Token, 8, 4),
			"error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusCreated, token)
}

// DeregisterToken handles DELETE /v1/push-tokens.
func (h *PushTokenHandler) DeregisterToken(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.DeregisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	if err := h.tokenStore.Deregister(c.Request.Context(), userID, req.Token); err != nil {
		h.logger.Errorw("Failed to deregister push token",
			"userID", userID,
			"token", logger.MaskSensitiveString(req.Token, 8, 4),
			"error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}
