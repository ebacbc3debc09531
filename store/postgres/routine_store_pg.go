package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
)

// Ensure pgRoutineStore implements store.RoutineStore.
var _ store.RoutineStore = (*pgRoutineStore)(nil)

type pgRoutineStore struct {
	db DB
}

// NewPgRoutineStore creates a new PostgreSQL routine store.
func NewPgRoutineStore(db DB) store.RoutineStore {
	return &pgRoutineStore{db: db}
}

// CreateRoutine inserts a new routine.
func (s *pgRoutineStore) CreateRoutine(ctx context.Context, routine *types.Routine) error {
	query := `INSERT INTO routines (user_id, name)
	          VALUES ($1, $2)
	          RETURNING id, created_at, updated_at`

	err := s.db.QueryRow(ctx, query, routine.UserID, routine.Name).
		Scan(&routine.ID, &routine.CreatedAt, &routine.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create routine: %w", err)
	}
	return nil
}

// GetRoutine retrieves a routine by ID.
func (s *pgRoutineStore) GetRoutine(ctx context.Context, id uuid.UUID) (*types.Routine, error) {
	query := `SELECT id, user_id, name, created_at, updated_at
	          FROM routines
	          WHERE id = $1`

	r := &types.Routine{}
	err := s.db.QueryRow(ctx, query, id).
		Scan(&r.ID, &r.UserID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("routine %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get routine: %w", err)
	}
	return r, nil
}

// ListRoutinesByUser retrieves all routines owned by a user.
func (s *pgRoutineStore) ListRoutinesByUser(ctx context.Context, userID uuid.UUID) ([]types.Routine, error) {
	query := `SELECT id, user_id, name, created_at, updated_at
	          FROM routines
	          WHERE user_id = $1
	          ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	routines := []types.Routine{}
	for rows.Next() {
		var r types.Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan routine row: %w", err)
		}
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during routine row iteration: %w", err)
	}
	return routines, nil
}

// DeleteRoutine removes a routine, but only if the provided userID owns it.
// Deleting a routine cascades to its variables (FK constraint).
func (s *pgRoutineStore) DeleteRoutine(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM routines WHERE id = $1 AND user_id = $2`

	cmdTag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete routine %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		checkQuery := `SELECT EXISTS(SELECT 1 FROM routines WHERE id = $1)`
		var exists bool
		if checkErr := s.db.QueryRow(ctx, checkQuery, id).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check existence for routine %s during delete: %w", id, checkErr)
		}
		if !exists {
			return fmt.Errorf("cannot delete routine %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("user %s not authorized to delete routine %s: %w", userID, id, store.ErrForbidden)
	}
	return nil
}

// CreateRoutineVariable inserts a new routine variable.
func (s *pgRoutineStore) CreateRoutineVariable(ctx context.Context, rv *types.RoutineVariable) error {
	query := `INSERT INTO routine_variables (routine_id, variable_id, weekdays, times, default_value)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at, updated_at`

	err := s.db.QueryRow(ctx, query,
		rv.RoutineID,
		rv.VariableID,
		rv.Weekdays,
		rv.Times,
		rv.DefaultValue,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create routine variable: %w", err)
	}
	return nil
}

// UpdateRoutineVariable applies the non-nil fields of the update.
func (s *pgRoutineStore) UpdateRoutineVariable(ctx context.Context, id uuid.UUID, update *types.RoutineVariableUpdate) error {
	setClause := "updated_at = $1"
	args := []any{time.Now().UTC()}
	argCount := 1

	if update.Weekdays != nil {
		argCount++
		setClause += fmt.Sprintf(", weekdays = $%d", argCount)
		args = append(args, *update.Weekdays)
	}
	if update.Times != nil {
		argCount++
		setClause += fmt.Sprintf(", times = $%d", argCount)
		args = append(args, *update.Times)
	}
	if update.DefaultValue != nil {
		argCount++
		setClause += fmt.Sprintf(", default_value = $%d", argCount)
		args = append(args, *update.DefaultValue)
	}

	argCount++
	query := fmt.Sprintf("UPDATE routine_variables SET %s WHERE id = $%d", setClause, argCount)
	args = append(args, id)

	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update routine variable %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("routine variable %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteRoutineVariable removes a routine variable.
func (s *pgRoutineStore) DeleteRoutineVariable(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := s.db.Exec(ctx, `DELETE FROM routine_variables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete routine variable %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("routine variable %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListVariablesByRoutine retrieves all variables of one routine.
func (s *pgRoutineStore) ListVariablesByRoutine(ctx context.Context, routineID uuid.UUID) ([]types.RoutineVariable, error) {
	query := `SELECT id, routine_id, variable_id, weekdays, times, default_value, created_at, updated_at
	          FROM routine_variables
	          WHERE routine_id = $1
	          ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, routineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine variables: %w", err)
	}
	defer rows.Close()

	vars := []types.RoutineVariable{}
	for rows.Next() {
		var rv types.RoutineVariable
		if err := rows.Scan(&rv.ID, &rv.RoutineID, &rv.VariableID, &rv.Weekdays, &rv.Times, &rv.DefaultValue, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan routine variable row: %w", err)
		}
		vars = append(vars, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during routine variable row iteration: %w", err)
	}
	return vars, nil
}

// ListScheduledVariables fetches every routine variable with its owning user
// in one bulk query. This is the input set for a scheduler run; the rows are
// treated as immutable during the run.
func (s *pgRoutineStore) ListScheduledVariables(ctx context.Context) ([]types.ScheduledVariable, error) {
	query := `SELECT rv.id, rv.routine_id, rv.variable_id, rv.weekdays, rv.times, rv.default_value,
	                 rv.created_at, rv.updated_at, r.user_id
	          FROM routine_variables rv
	          JOIN routines r ON r.id = rv.routine_id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled variables: %w", err)
	}
	defer rows.Close()

	vars := []types.ScheduledVariable{}
	for rows.Next() {
		var sv types.ScheduledVariable
		if err := rows.Scan(&sv.ID, &sv.RoutineID, &sv.VariableID, &sv.Weekdays, &sv.Times, &sv.DefaultValue, &sv.CreatedAt, &sv.UpdatedAt, &sv.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled variable row: %w", err)
		}
		vars = append(vars, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during scheduled variable row iteration: %w", err)
	}
	return vars, nil
}
