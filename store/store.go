// Package store defines the data access interfaces consumed by services and
// handlers. Concrete PostgreSQL implementations live in store/postgres.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/types"
)

// RoutineStore handles routines and their scheduled variables.
type RoutineStore interface {
	CreateRoutine(ctx context.Context, routine *types.Routine) error
	GetRoutine(ctx context.Context, id uuid.UUID) (*types.Routine, error)
	ListRoutinesByUser(ctx context.Context, userID uuid.UUID) ([]types.Routine, error)
	DeleteRoutine(ctx context.Context, id, userID uuid.UUID) error

	CreateRoutineVariable(ctx context.Context, rv *types.RoutineVariable) error
	UpdateRoutineVariable(ctx context.Context, id uuid.UUID, update *types.RoutineVariableUpdate) error
	DeleteRoutineVariable(ctx context.Context, id uuid.UUID) error
	ListVariablesByRoutine(ctx context.Context, routineID uuid.UUID) ([]types.RoutineVariable, error)

	// ListScheduledVariables returns every routine variable joined with its
	// owning user, in one bulk query, for a scheduler run.
	ListScheduledVariables(ctx context.Context) ([]types.ScheduledVariable, error)
}

// LogStore handles log entries. Auto-log writes are conditional inserts so
// that at-most-once per minute slot is enforced by the database, not by the
// preceding existence check alone.
type LogStore interface {
	Create(ctx context.Context, entry *types.LogEntry) error
	List(ctx context.Context, userID uuid.UUID, filter types.LogFilter) ([]types.LogEntry, error)

	// ExistsAutoLogInMinute reports whether an auto-sourced entry already
	// exists for the key within [minuteStart, minuteStart+1m).
	ExistsAutoLogInMinute(ctx context.Context, userID, variableID, routineID uuid.UUID, minuteStart time.Time) (bool, error)

	// InsertAutoLog writes an auto-sourced entry, suppressing duplicate-slot
	// conflicts. Returns false when the row already existed.
	InsertAutoLog(ctx context.Context, entry *types.LogEntry) (bool, error)
}

// ProfileStore handles per-user settings used by the scheduler.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpsertTimezone(ctx context.Context, userID uuid.UUID, timezone string) error

	// GetTimezones bulk-fetches stored timezones for a set of users. Users
	// without a profile row are simply absent from the result map.
	GetTimezones(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// PreferenceStore handles notification preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID uuid.UUID) (*types.NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *types.NotificationPreference) error
	ListReminderEnabled(ctx context.Context) ([]types.NotificationPreference, error)
}

// ReminderHistoryStore records reminder occurrences. Claim is the duplicate
// guard: the unique (user, variable, day, slot) constraint makes it succeed
// at most once per occurrence.
type ReminderHistoryStore interface {
	Claim(ctx context.Context, rec *types.ReminderRecord) (bool, error)
	MarkOutcome(ctx context.Context, id uuid.UUID, status types.ReminderStatus, sentAt *time.Time) error
}

// PushTokenStore handles registered push subscription tokens.
type PushTokenStore interface {
	Register(ctx context.Context, token *types.PushToken) error
	Deregister(ctx context.Context, userID uuid.UUID, token string) error
	GetActiveTokensForUser(ctx context.Context, userID uuid.UUID) ([]types.PushToken, error)
	InvalidateToken(ctx context.Context, token string) error
	UpdateTokenLastUsed(ctx context.Context, token string) error
}
