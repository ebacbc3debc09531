package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
)

// Ensure pgPushTokenStore implements store.PushTokenStore.
var _ store.PushTokenStore = (*pgPushTokenStore)(nil)

type pgPushTokenStore struct {
	db DB
}

// NewPgPushTokenStore creates a new PostgreSQL push token store.
func NewPgPushTokenStore(db DB) store.PushTokenStore {
	return &pgPushTokenStore{db: db}
}

// Register stores a push token for a user, reactivating it if the same token
// was registered before.
func (s *pgPushTokenStore) Register(ctx context.Context, token *types.PushToken) error {
	query := `INSERT INTO push_tokens (user_id, token, device_type, is_active)
	          VALUES ($1, $2, $3, TRUE)
	          ON CONFLICT (user_id, token) DO UPDATE
	          SET is_active = TRUE, device_type = EXCLUDED.device_type, updated_at = now()
	          RETURNING id, created_at, updated_at`

	err := s.db.QueryRow(ctx, query, token.UserID, token.Token, token.DeviceType).
		Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	token.IsActive = true
	return nil
}

// Deregister deactivates a user's push token.
func (s *pgPushTokenStore) Deregister(ctx context.Context, userID uuid.UUID, token string) error {
	query := `UPDATE push_tokens SET is_active = FALSE, updated_at = now()
	          WHERE user_id = $1 AND token = $2`

	cmdTag, err := s.db.Exec(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to deregister push token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("push token for user %s: %w", userID, store.ErrNotFound)
	}
	return nil
}

// GetActiveTokensForUser retrieves all active tokens for a user.
func (s *pgPushTokenStore) GetActiveTokensForUser(ctx context.Context, userID uuid.UUID) ([]types.PushToken, error) {
	query := `SELECT id, user_id, token, device_type, is_active, created_at, updated_at, last_used_at
	          FROM push_tokens
	          WHERE user_id = $1 AND is_active = TRUE`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query push tokens: %w", err)
	}
	defer rows.Close()

	tokens := []types.PushToken{}
	for rows.Next() {
		var t types.PushToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.DeviceType, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during push token row iteration: %w", err)
	}
	return tokens, nil
}

// InvalidateToken deactivates a token regardless of owner. Used when the push
// provider reports the device as no longer registered.
func (s *pgPushTokenStore) InvalidateToken(ctx context.Context, token string) error {
	query := `UPDATE push_tokens SET is_active = FALSE, updated_at = now() WHERE token = $1`

	if _, err := s.db.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("failed to invalidate push token: %w", err)
	}
	return nil
}

// UpdateTokenLastUsed records a successful delivery on the token.
func (s *pgPushTokenStore) UpdateTokenLastUsed(ctx context.Context, token string) error {
	query := `UPDATE push_tokens SET last_used_at = now() WHERE token = $1`

	if _, err := s.db.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("failed to update push token last used: %w", err)
	}
	return nil
}
