package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"github.com/stretchr/testify/mock"
)

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

var _ store.RoutineStore = (*MockRoutineStore)(nil)

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

var _ store.LogStore = (*MockLogStore)(nil)
