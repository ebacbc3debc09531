package types

import (
	"time"

	"github.com/google/uuid"
)

// DeviceType represents the platform a push token belongs to.
type DeviceType string

const (
	DeviceTypeIOS     DeviceType = "ios"
	DeviceTypeAndroid DeviceType = "android"
	DeviceTypeWeb     DeviceType = "web"
)

// PushToken is a user's registered push subscription endpoint.
type PushToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Token      string     `json:"token"`
	DeviceType DeviceType `json:"device_type"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// RegisterPushTokenRequest is the request body for registering a push token.
type RegisterPushTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required,oneof=ios android web"`
}

// DeregisterPushTokenRequest is the request body for deregistering a push token.
type DeregisterPushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
