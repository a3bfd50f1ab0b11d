package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openchat-labs/autoreply/pkg/autoreply/rules"
)

// UserStore persists per-conversation routing state. Implements
// rules.UserRegistry.
type UserStore struct {
	db *sql.DB
}

// NewUserStore wraps the shared database.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// RoutingState reads the conversation's routing flag. Unknown users are
// idle.
func (s *UserStore) RoutingState(ctx context.Context, channelUserID string) (rules.RoutingState, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT routing_state FROM users WHERE channel_user_id = ?`,
		channelUserID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return rules.RoutingIdle, nil
	}
	if err != nil {
		return rules.RoutingIdle, fmt.Errorf("reading routing state: %w", err)
	}
	return rules.RoutingState(state), nil
}

// SetRoutingState upserts the conversation's routing flag. Last-writer-wins
// with no transactional guarantee, accepted for this state.
func (s *UserStore) SetRoutingState(ctx context.Context, channelUserID string, state rules.RoutingState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (channel_user_id, routing_state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(channel_user_id) DO UPDATE SET
			routing_state = excluded.routing_state,
			updated_at = excluded.updated_at`,
		channelUserID, string(state), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("setting routing state: %w", err)
	}
	return nil
}
