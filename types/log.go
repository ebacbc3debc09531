package types

import (
	"time"

	"github.com/google/uuid"
)

// LogSource tags where a log entry originated.
type LogSource string

const (
	// LogSourceManual marks entries created directly by the user.
	LogSourceManual LogSource = "manual"
	// LogSourceRoutineAuto marks entries created by the auto-log scheduler.
	LogSourceRoutineAuto LogSource = "routine_auto"
)

// LogEntry is a single logged value for a variable. Entries are append-only:
// they are never mutated or deleted by the scheduler.
type LogEntry struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	VariableID uuid.UUID  `json:"variable_id"`
	RoutineID  *uuid.UUID `json:"routine_id,omitempty"`
	Date       time.Time  `json:"date"`
	Value      string     `json:"value"`
	Source     LogSource  `json:"source"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LogEntryCreate is the payload for manual log creation.
type LogEntryCreate struct {
	VariableID uuid.UUID  `json:"variable_id" binding:"required"`
	RoutineID  *uuid.UUID `json:"routine_id,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Value      string     `json:"value" binding:"required"`
	Notes      string     `json:"notes,omitempty"`
}

// LogFilter narrows log listings.
type LogFilter struct {
	VariableID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Source     *LogSource
	Limit      int
	Offset     int
}
