package types

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile holds per-user settings relevant to scheduling. Timezone is an
// IANA zone name; an empty value means the user never set one and the
// scheduler falls back to the default zone.
type UserProfile struct {
	UserID    uuid.UUID `json:"user_id"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimezoneUpdate is the payload for setting a user's timezone.
type TimezoneUpdate struct {
	Timezone string `json:"timezone" binding:"required"`
}
