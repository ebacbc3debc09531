package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
)

// Ensure pgPreferenceStore implements store.PreferenceStore.
var _ store.PreferenceStore = (*pgPreferenceStore)(nil)

type pgPreferenceStore struct {
	db DB
}

// NewPgPreferenceStore creates a new PostgreSQL notification preference store.
func NewPgPreferenceStore(db DB) store.PreferenceStore {
	return &pgPreferenceStore{db: db}
}

// GetPreference retrieves a user's notification preferences.
func (s *pgPreferenceStore) GetPreference(ctx context.Context, userID uuid.UUID) (*types.NotificationPreference, error) {
	query := `SELECT user_id, routine_reminder_enabled, routine_reminder_minutes, routine_notification_timing, updated_at
	          FROM notification_preferences
	          WHERE user_id = $1`

	p := &types.NotificationPreference{}
	err := s.db.QueryRow(ctx, query, userID).
		Scan(&p.UserID, &p.RoutineReminderEnabled, &p.RoutineReminderMinutes, &p.RoutineReminderTiming, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("notification preference for user %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}
	return p, nil
}

// UpsertPreference creates or replaces a user's notification preferences.
func (s *pgPreferenceStore) UpsertPreference(ctx context.Context, pref *types.NotificationPreference) error {
	query := `INSERT INTO notification_preferences
	            (user_id, routine_reminder_enabled, routine_reminder_minutes, routine_notification_timing)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id) DO UPDATE
	          SET routine_reminder_enabled = EXCLUDED.routine_reminder_enabled,
	              routine_reminder_minutes = EXCLUDED.routine_reminder_minutes,
	              routine_notification_timing = EXCLUDED.routine_notification_timing,
	              updated_at = now()`

	_, err := s.db.Exec(ctx, query,
		pref.UserID,
		pref.RoutineReminderEnabled,
		pref.RoutineReminderMinutes,
		pref.RoutineReminderTiming,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preference for user %s: %w", pref.UserID, err)
	}
	return nil
}

// ListReminderEnabled retrieves preferences for every user with routine
// reminders switched on. This is the input set for a reminder run.
func (s *pgPreferenceStore) ListReminderEnabled(ctx context.Context) ([]types.NotificationPreference, error) {
	query := `SELECT user_id, routine_reminder_enabled, routine_reminder_minutes, routine_notification_timing, updated_at
	          FROM notification_preferences
	          WHERE routine_reminder_enabled = TRUE`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder preferences: %w", err)
	}
	defer rows.Close()

	prefs := []types.NotificationPreference{}
	for rows.Next() {
		var p types.NotificationPreference
		if err := rows.Scan(&p.UserID, &p.RoutineReminderEnabled, &p.RoutineReminderMinutes, &p.RoutineReminderTiming, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during preference row iteration: %w", err)
	}
	return prefs, nil
}

// Ensure pgReminderHistoryStore implements store.ReminderHistoryStore.
var _ store.ReminderHistoryStore = (*pgReminderHistoryStore)(nil)

type pgReminderHistoryStore struct {
	db DB
}

// NewPgReminderHistoryStore creates a new PostgreSQL reminder history store.
func NewPgReminderHistoryStore(db DB) store.ReminderHistoryStore {
	return &pgReminderHistoryStore{db: db}
}

// Claim records a pending reminder occurrence. The unique constraint on
// (user_id, routine_variable_id, slot_date, slot_time) makes this succeed at
// most once per occurrence per local day; a conflict means another run (or an
// earlier invocation) already claimed the slot.
func (s *pgReminderHistoryStore) Claim(ctx context.Context, rec *types.ReminderRecord) (bool, error) {
	query := `INSERT INTO reminder_history (user_id, routine_variable_id, slot_date, slot_time, status)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT DO NOTHING
	          RETURNING id, created_at`

	err := s.db.QueryRow(ctx, query,
		rec.UserID,
		rec.RoutineVariableID,
		rec.SlotDate,
		rec.SlotTime,
		types.ReminderStatusPending,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim reminder slot: %w", err)
	}
	rec.Status = types.ReminderStatusPending
	return true, nil
}

// MarkOutcome moves a claimed reminder to its terminal state.
func (s *pgReminderHistoryStore) MarkOutcome(ctx context.Context, id uuid.UUID, status types.ReminderStatus, sentAt *time.Time) error {
	query := `UPDATE reminder_history SET status = $1, sent_at = $2 WHERE id = $3`

	cmdTag, err := s.db.Exec(ctx, query, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s as %s: %w", id, status, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("reminder record %s: %w", id, store.ErrNotFound)
	}
	return nil
}
