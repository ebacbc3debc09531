package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderHistoryStore_Claim(t *testing.T) {
	ctx := context.Background()

	rec := func() *types.ReminderRecord {
		return &types.ReminderRecord{
			UserID:            uuid.New(),
			RoutineVariableID: uuid.New(),
			SlotDate:          time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
			SlotTime:          "08:00",
		}
	}

	t.Run("first claim wins", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgReminderHistoryStore(mock)
		r := rec()
		id := uuid.New()

		mock.ExpectQuery("INSERT INTO reminder_history").
			WithArgs(r.UserID, r.RoutineVariableID, r.SlotDate, r.SlotTime, types.ReminderStatusPending).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, time.Now()))

		claimed, err := s.Claim(ctx, r)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, id, r.ID)
		assert.Equal(t, types.ReminderStatusPending, r.Status)
	})

	t.Run("second claim is suppressed", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgReminderHistoryStore(mock)
		r := rec()

		mock.ExpectQuery("INSERT INTO reminder_history").
			WithArgs(r.UserID, r.RoutineVariableID, r.SlotDate, r.SlotTime, types.ReminderStatusPending).
			WillReturnError(pgx.ErrNoRows)

		claimed, err := s.Claim(ctx, r)
		require.NoError(t, err)
		assert.False(t, claimed)
	})

	t.Run("database failure surfaces", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgReminderHistoryStore(mock)
		r := rec()

		mock.ExpectQuery("INSERT INTO reminder_history").
			WithArgs(r.UserID, r.RoutineVariableID, r.SlotDate, r.SlotTime, types.ReminderStatusPending).
			WillReturnError(errors.New("connection reset"))

		_, err := s.Claim(ctx, r)
		assert.Error(t, err)
	})
}

func TestReminderHistoryStore_MarkOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("marks sent", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgReminderHistoryStore(mock)
		id := uuid.New()
		sentAt := time.Now().UTC()

		mock.ExpectExec("UPDATE reminder_history").
			WithArgs(types.ReminderStatusSent, &sentAt, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.MarkOutcome(ctx, id, types.ReminderStatusSent, &sentAt))
	})

	t.Run("unknown record", func(t *testing.T) {
		mock := newMockPool(t)
		s := NewPgReminderHistoryStore(mock)
		id := uuid.New()

		mock.ExpectExec("UPDATE reminder_history").
			WithArgs(types.ReminderStatusFailed, (*time.Time)(nil), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.MarkOutcome(ctx, id, types.ReminderStatusFailed, nil)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
