package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
)

// Ensure pgLogStore implements store.LogStore.
var _ store.LogStore = (*pgLogStore)(nil)

type pgLogStore struct {
	db DB
}

// NewPgLogStore creates a new PostgreSQL log store.
func NewPgLogStore(db DB) store.LogStore {
	return &pgLogStore{db: db}
}

// Create inserts a new log entry. Entries are append-only.
func (s *pgLogStore) Create(ctx context.Context, entry *types.LogEntry) error {
	query := `INSERT INTO logs (user_id, variable_id, routine_id, date, value, source, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id, created_at`

	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}

	err := s.db.QueryRow(ctx, query,
		entry.UserID,
		entry.VariableID,
		entry.RoutineID,
		entry.Date,
		entry.Value,
		entry.Source,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}
	return nil
}

// List retrieves log entries for a user with optional filters.
func (s *pgLogStore) List(ctx context.Context, userID uuid.UUID, filter types.LogFilter) ([]types.LogEntry, error) {
	baseQuery := `SELECT id, user_id, variable_id, routine_id, date, value, source, notes, created_at
	              FROM logs
	              WHERE user_id = $1`
	args := []any{userID}
	argCount := 1

	if filter.VariableID != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND variable_id = $%d", argCount)
		args = append(args, *filter.VariableID)
	}
	if filter.From != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND date < $%d", argCount)
		args = append(args, *filter.To)
	}
	if filter.Source != nil {
		argCount++
		baseQuery += fmt.Sprintf(" AND source = $%d", argCount)
		args = append(args, *filter.Source)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	argCount++
	baseQuery += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d", argCount)
	args = append(args, limit)

	argCount++
	baseQuery += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, filter.Offset)

	rows, err := s.db.Query(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := []types.LogEntry{}
	for rows.Next() {
		var e types.LogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.VariableID, &e.RoutineID, &e.Date, &e.Value, &e.Source, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during log row iteration: %w", err)
	}
	return entries, nil
}

// ExistsAutoLogInMinute checks whether an auto-sourced entry already exists
// for the (user, variable, routine) key within [minuteStart, minuteStart+1m).
func (s *pgLogStore) ExistsAutoLogInMinute(ctx context.Context, userID, variableID, routineID uuid.UUID, minuteStart time.Time) (bool, error) {
	query := `SELECT EXISTS(
	            SELECT 1 FROM logs
	            WHERE user_id = $1 AND variable_id = $2 AND routine_id = $3
	              AND source = $4
	              AND date >= $5 AND date < $6)`

	var exists bool
	err := s.db.QueryRow(ctx, query,
		userID,
		variableID,
		routineID,
		types.LogSourceRoutineAuto,
		minuteStart,
		minuteStart.Add(time.Minute),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing auto-log: %w", err)
	}
	return exists, nil
}

// InsertAutoLog writes an auto-sourced entry. The partial unique index on
// (user_id, variable_id, routine_id, minute of date) makes the insert a
// no-op when the slot was already logged, closing the check-then-act race
// between overlapping runs. Returns false when the conflict suppressed the
// write.
func (s *pgLogStore) InsertAutoLog(ctx context.Context, entry *types.LogEntry) (bool, error) {
	query := `INSERT INTO logs (user_id, variable_id, routine_id, date, value, source, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT DO NOTHING
	          RETURNING id, created_at`

	err := s.db.QueryRow(ctx, query,
		entry.UserID,
		entry.VariableID,
		entry.RoutineID,
		entry.Date,
		entry.Value,
		types.LogSourceRoutineAuto,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			// Conflict: another run already logged this slot.
			return false, nil
		}
		return false, fmt.Errorf("failed to insert auto-log: %w", err)
	}
	entry.Source = types.LogSourceRoutineAuto
	return true, nil
}
