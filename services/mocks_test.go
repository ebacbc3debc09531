package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/stretchr/testify/mock"
)

// MockRoutineStore implements store.RoutineStore for service tests.
type MockRoutineStore struct {
	mock.Mock
}

func (m *MockRoutineStore) CreateRoutine(ctx context.Context, routine *types.Routine) error {
	args := m.Called(ctx, routine)
	return args.Error(0)
}

func (m *MockRoutineStore) GetRoutine(ctx context.Context, id uuid.UUID) (*types.Routine, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Routine), args.Error(1)
}

func (m *MockRoutineStore) ListRoutinesByUser(ctx context.Context, userID uuid.UUID) ([]types.Routine, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Routine), args.Error(1)
}

func (m *MockRoutineStore) DeleteRoutine(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockRoutineStore) CreateRoutineVariable(ctx context.Context, rv *types.RoutineVariable) error {
	args := m.Called(ctx, rv)
	return args.Error(0)
}

func (m *MockRoutineStore) UpdateRoutineVariable(ctx context.Context, id uuid.UUID, update *types.RoutineVariableUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockRoutineStore) DeleteRoutineVariable(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoutineStore) ListVariablesByRoutine(ctx context.Context, routineID uuid.UUID) ([]types.RoutineVariable, error) {
	args := m.Called(ctx, routineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.RoutineVariable), args.Error(1)
}

func (m *MockRoutineStore) ListScheduledVariables(ctx context.Context) ([]types.ScheduledVariable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ScheduledVariable), args.Error(1)
}

// MockLogStore implements store.LogStore for service tests.
type MockLogStore struct {
	mock.Mock
}

func (m *MockLogStore) Create(ctx context.Context, entry *types.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLogStore) List(ctx context.Context, userID uuid.UUID, filter types.LogFilter) ([]types.LogEntry, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.LogEntry), args.Error(1)
}

func (m *MockLogStore) ExistsAutoLogInMinute(ctx context.Context, userID, variableID, routineID uuid.UUID, minuteStart time.Time) (bool, error) {
	args := m.Called(ctx, userID, variableID, routineID, minuteStart)
	return args.Bool(0), args.Error(1)
}

func (m *MockLogStore) InsertAutoLog(ctx context.Context, entry *types.LogEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

// MockProfileStore implements store.ProfileStore for service tests.
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockProfileStore) UpsertTimezone(ctx context.Context, userID uuid.UUID, timezone string) error {
	args := m.Called(ctx, userID, timezone)
	return args.Error(0)
}

func (m *MockProfileStore) GetTimezones(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]string), args.Error(1)
}

// MockPreferenceStore implements store.PreferenceStore for service tests.
type MockPreferenceStore struct {
	mock.Mock
}

func (m *MockPreferenceStore) GetPreference(ctx context.Context, userID uuid.UUID) (*types.NotificationPreference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.NotificationPreference), args.Error(1)
}

func (m *MockPreferenceStore) UpsertPreference(ctx context.Context, pref *types.NotificationPreference) error {
	args := m.Called(ctx, pref)
	return args.Error(0)
}

func (m *MockPreferenceStore) ListReminderEnabled(ctx context.Context) ([]types.NotificationPreference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.NotificationPreference), args.Error(1)
}

// MockReminderHistoryStore implements store.ReminderHistoryStore for service tests.
type MockReminderHistoryStore struct {
	mock.Mock
}

func (m *MockReminderHistoryStore) Claim(ctx context.Context, rec *types.ReminderRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockReminderHistoryStore) MarkOutcome(ctx context.Context, id uuid.UUID, status types.ReminderStatus, sentAt *time.Time) error {
	args := m.Called(ctx, id, status, sentAt)
	return args.Error(0)
}

// MockPushService implements PushService for reminder tests.
type MockPushService struct {
	mock.Mock
}

func (m *MockPushService) SendToUser(ctx context.Context, userID uuid.UUID, notification *PushNotification) error {
	args := m.Called(ctx, userID, notification)
	return args.Error(0)
}

func (m *MockPushService) SendToToken(ctx context.Context, token string, notification *PushNotification) error {
	args := m.Called(ctx, token, notification)
	return args.Error(0)
}
