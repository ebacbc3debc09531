package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
)

// Ensure pgProfileStore implements store.ProfileStore.
var _ store.ProfileStore = (*pgProfileStore)(nil)

type pgProfileStore struct {
	db DB
}

// NewPgProfileStore creates a new PostgreSQL profile store.
func NewPgProfileStore(db DB) store.ProfileStore {
	return &pgProfileStore{db: db}
}

// GetProfile retrieves a user's profile.
func (s *pgProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	query := `SELECT user_id, timezone, created_at, updated_at
	          FROM profiles
	          WHERE user_id = $1`

	p := &types.UserProfile{}
	err := s.db.QueryRow(ctx, query, userID).
		Scan(&p.UserID, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("profile for user %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// UpsertTimezone sets a user's timezone, creating the profile row if needed.
func (s *pgProfileStore) UpsertTimezone(ctx context.Context, userID uuid.UUID, timezone string) error {
	query := `INSERT INTO profiles (user_id, timezone)
	          VALUES ($1, $2)
	          ON CONFLICT (user_id) DO UPDATE
	          SET timezone = EXCLUDED.timezone, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, userID, timezone); err != nil {
		return fmt.Errorf("failed to upsert timezone for user %s: %w", userID, err)
	}
	return nil
}

// GetTimezones bulk-fetches stored timezones. Users without a profile row are
// absent from the result; the caller falls back to the default zone for them.
func (s *pgProfileStore) GetTimezones(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `SELECT user_id, timezone FROM profiles WHERE user_id = ANY($1)`

	rows, err := s.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query timezones: %w", err)
	}
	defer rows.Close()

	zones := make(map[uuid.UUID]string, len(userIDs))
	for rows.Next() {
		var id uuid.UUID
		var tz string
		if err := rows.Scan(&id, &tz); err != nil {
			return nil, fmt.Errorf("failed to scan timezone row: %w", err)
		}
		zones[id] = tz
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during timezone row iteration: %w", err)
	}
	return zones, nil
}
