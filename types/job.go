package types

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the outcome of processing one routine variable in a job run.
type ItemStatus string

const (
	// ItemStatusLogged means an auto-log entry was written.
	ItemStatusLogged ItemStatus = "logged"
	// ItemStatusNotified means a reminder was dispatched for the slot.
	ItemStatusNotified ItemStatus = "notified"
	// ItemStatusDuplicate means the slot was already handled this occurrence.
	ItemStatusDuplicate ItemStatus = "duplicate"
	// ItemStatusSkipped means the variable did not match the current instant.
	ItemStatusSkipped ItemStatus = "skipped"
	// ItemStatusError means processing this variable failed; the batch continues.
	ItemStatusError ItemStatus = "error"
)

// ItemOutcome is the structured per-item record attached to a job response,
// so that skips and failures are observable instead of silently swallowed.
type ItemOutcome struct {
	RoutineVariableID uuid.UUID  `json:"routine_variable_id"`
	UserID            uuid.UUID  `json:"user_id"`
	Status            ItemStatus `json:"status"`
	Reason            string     `json:"reason,omitempty"`
	LogID             *uuid.UUID `json:"log_id,omitempty"`
}

// JobRunResult is the outcome of one scheduler invocation.
// Logged holds the routine variable IDs that produced a new entry (or, for
// the reminder job, a dispatched reminder).
type JobRunResult struct {
	Logged    []uuid.UUID   `json:"logged"`
	Items     []ItemOutcome `json:"items"`
	Timestamp time.Time     `json:"timestamp"`
}
