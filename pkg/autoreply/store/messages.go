package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openchat-labs/autoreply/pkg/autoreply/convo"
)

// Message is one persisted log entry.
type Message struct {
	ID               string
	ChannelUserID    string
	Role             convo.SenderRole
	Text             string
	CorrelationToken string
	RawMetadata      string
	CreatedAt        time.Time
}

// MessageLog is the append/query message store.
type MessageLog struct {
	db *sql.DB
}

// NewMessageLog wraps the shared database.
func NewMessageLog(db *sql.DB) *MessageLog {
	return &MessageLog{db: db}
}

// Append writes one message and returns its id. rawMetadata is a JSON
// document (rule_id, model, tokens_used, response_time); empty means "{}".
func (l *MessageLog) Append(ctx context.Context, channelUserID string, role convo.SenderRole, text, correlationToken, rawMetadata string) (string, error) {
	if rawMetadata == "" {
		rawMetadata = "{}"
	}
	id := uuid.NewString()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO messages (id, channel_user_id, sender_role, text,
		                      correlation_token, raw_metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, channelUserID, role.String(), text, correlationToken, rawMetadata,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("appending message: %w", err)
	}
	return id, nil
}

// Recent returns the latest messages for a conversation, newest first.
func (l *MessageLog) Recent(ctx context.Context, channelUserID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, channel_user_id, sender_role, text, correlation_token,
		       raw_metadata, created_at
		FROM messages WHERE channel_user_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		channelUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m        Message
			role, ts string
		)
		if err := rows.Scan(&m.ID, &m.ChannelUserID, &role, &m.Text,
			&m.CorrelationToken, &m.RawMetadata, &ts); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = convo.ParseRole(role)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, m)
	}
	return out, rows.Err()
}
