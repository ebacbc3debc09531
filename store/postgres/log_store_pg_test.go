package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func autoLogEntry() *types.LogEntry {
	routineID := uuid.New()
	return &types.LogEntry{
		UserID:     uuid.New(),
		VariableID: uuid.New(),
		RoutineID:  &routineID,
		Date:       time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC),
		Value:      "1",
		Notes:      "Auto-logged from routine (timezone: Europe/Stockholm, slot: 08:00)",
	}
}

func TestLogStore_InsertAutoLog(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts new slot", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgLogStore(mock)
		entry := autoLogEntry()
		id := uuid.New()

		mock.ExpectQuery("INSERT INTO logs").
			WithArgs(entry.UserID, entry.VariableID, entry.RoutineID, entry.Date,
				entry.Value, types.LogSourceRoutineAuto, entry.Notes).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
				AddRow(id, time.Now()))

		inserted, err := s.InsertAutoLog(ctx, entry)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, id, entry.ID)
		assert.Equal(t, types.LogSourceRoutineAuto, entry.Source)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict on already-logged slot is not an error", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgLogStore(mock)
		entry := autoLogEntry()

		// ON CONFLICT DO NOTHING yields no RETURNING row.
		mock.ExpectQuery("INSERT INTO logs").
			WithArgs(entry.UserID, entry.VariableID, entry.RoutineID, entry.Date,
				entry.Value, types.LogSourceRoutineAuto, entry.Notes).
			WillReturnError(pgx.ErrNoRows)

		inserted, err := s.InsertAutoLog(ctx, entry)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database failure surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgLogStore(mock)
		entry := autoLogEntry()

		mock.ExpectQuery("INSERT INTO logs").
			WithArgs(entry.UserID, entry.VariableID, entry.RoutineID, entry.Date,
				entry.Value, types.LogSourceRoutineAuto, entry.Notes).
			WillReturnError(errors.New("connection reset"))

		_, err := s.InsertAutoLog(ctx, entry)
		assert.Error(t, err)
	})
}

func TestLogStore_ExistsAutoLogInMinute(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	variableID := uuid.New()
	routineID := uuid.New()
	minuteStart := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)

	t.Run("existing slot", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgLogStore(mock)

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(userID, variableID, routineID, types.LogSourceRoutineAuto,
				minuteStart, minuteStart.Add(time.Minute)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := s.ExistsAutoLogInMinute(ctx, userID, variableID, routineID, minuteStart)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("empty slot", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgLogStore(mock)

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(userID, variableID, routineID, types.LogSourceRoutineAuto,
				minuteStart, minuteStart.Add(time.Minute)).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := s.ExistsAutoLogInMinute(ctx, userID, variableID, routineID, minuteStart)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestLogStore_List(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	s := NewPgLogStore(mock)

	userID := uuid.New()
	variableID := uuid.New()
	source := types.LogSourceRoutineAuto

	rows := pgxmock.NewRows([]string{"id", "user_id", "variable_id", "routine_id", "date", "value", "source", "notes", "created_at"}).
		AddRow(uuid.New(), userID, variableID, (*uuid.UUID)(nil), time.Now(), "1", types.LogSourceRoutineAuto, "", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM logs").
		WithArgs(userID, variableID, source, 50, 0).
		WillReturnRows(rows)

	entries, err := s.List(ctx, userID, types.LogFilter{
		VariableID: &variableID,
		Source:     &source,
		Limit:      50,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, userID, entries[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
