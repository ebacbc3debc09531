package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReminderTiming controls when a routine reminder fires relative to the
// scheduled slot time.
type ReminderTiming string

const (
	ReminderTimingBefore ReminderTiming = "before"
	ReminderTimingAtTime ReminderTiming = "at_time"
	ReminderTimingAfter  ReminderTiming = "after"
)

// Valid reports whether the timing value is one of the known variants.
func (t ReminderTiming) Valid() bool {
	switch t {
	case ReminderTimingBefore, ReminderTimingAtTime, ReminderTimingAfter:
		return true
	}
	return false
}

// NotificationPreference holds a user's routine reminder settings.
type NotificationPreference struct {
	UserID                 uuid.UUID      `json:"user_id"`
	RoutineReminderEnabled bool           `json:"routine_reminder_enabled"`
	RoutineReminderMinutes int            `json:"routine_reminder_minutes"`
	RoutineReminderTiming  ReminderTiming `json:"routine_notification_timing"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// Validate checks preference values before persisting.
func (p *NotificationPreference) Validate() error {
	if !p.RoutineReminderTiming.Valid() {
		return fmt.Errorf("invalid reminder timing %q", p.RoutineReminderTiming)
	}
	if p.RoutineReminderMinutes < 0 || p.RoutineReminderMinutes > 24*60 {
		return fmt.Errorf("reminder minutes %d out of range", p.RoutineReminderMinutes)
	}
	return nil
}

// ReminderStatus is the terminal state of one reminder occurrence.
// Lifecycle: pending -> sent | failed. A slot that was already claimed for
// the day is a duplicate-skip and produces no new history row.
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusSent    ReminderStatus = "sent"
	ReminderStatusFailed  ReminderStatus = "failed"
)

// ReminderRecord is one row of reminder history. The (user, variable, local
// day, slot) tuple is unique, which is what enforces at most one reminder per
// user per day per routine slot.
type ReminderRecord struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	RoutineVariableID uuid.UUID      `json:"routine_variable_id"`
	SlotDate          time.Time      `json:"slot_date"`
	SlotTime          string         `json:"slot_time"`
	Status            ReminderStatus `json:"status"`
	SentAt            *time.Time     `json:"sent_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}
