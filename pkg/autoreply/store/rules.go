package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/openchat-labs/autoreply/pkg/autoreply/rules"
	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
)

// RuleStore persists reply rules. Implements rules.Store.
type RuleStore struct {
	db *sql.DB
}

// NewRuleStore wraps the shared database.
func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

// ActiveRules returns all active rules in storage (insertion) order, which
// the cache relies on for stable priority tie-breaks.
func (s *RuleStore) ActiveRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, keywords, mode, priority, model_id, instructions,
		       handoff_text, tool_config, quick_replies, trigger_count,
		       total_tokens, avg_response_ms
		FROM rules WHERE active = 1 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying active rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		var (
			r                                  rules.Rule
			keywords, toolConfig, quickReplies string
		)
		if err := rows.Scan(&r.ID, &r.Name, &keywords, &r.Mode, &r.Priority,
			&r.ModelID, &r.Instructions, &r.HandoffText, &toolConfig,
			&quickReplies, &r.TriggerCount, &r.TotalTokens, &r.AvgResponseMillis); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		r.Active = true

		if err := json.Unmarshal([]byte(keywords), &r.Keywords); err != nil {
			return nil, fmt.Errorf("rule %s: decoding keywords: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(toolConfig), &r.ToolConfig); err != nil {
			return nil, fmt.Errorf("rule %s: decoding tool config: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(quickReplies), &r.QuickReplies); err != nil {
			return nil, fmt.Errorf("rule %s: decoding quick replies: %w", r.ID, err)
		}

		out = append(out, r)
	}
	return out, rows.Err()
}

// IncrementTrigger bumps the trigger counter as one atomic in-place update
// and reads back the post-increment value. Correct under concurrent webhook
// deliveries because the increment never round-trips through Go.
func (s *RuleStore) IncrementTrigger(ctx context.Context, ruleID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET trigger_count = trigger_count + 1 WHERE id = ?`, ruleID)
	if err != nil {
		return 0, fmt.Errorf("incrementing trigger count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("rule %s not found", ruleID)
	}

	var count int64
	err = s.db.QueryRowContext(ctx,
		`SELECT trigger_count FROM rules WHERE id = ?`, ruleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reading trigger count: %w", err)
	}
	return count, nil
}

// UpdateStats adds the tokens used by one reply to the rule's running total
// (atomically, in place) and writes the new response-time average.
func (s *RuleStore) UpdateStats(ctx context.Context, ruleID string, tokensUsed int64, avgResponseMillis float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rules SET total_tokens = total_tokens + ?, avg_response_ms = ? WHERE id = ?`,
		tokensUsed, avgResponseMillis, ruleID)
	if err != nil {
		return fmt.Errorf("updating rule stats: %w", err)
	}
	return nil
}

// Save inserts or replaces a rule. Structural mutation: callers must
// invalidate the rule cache afterwards.
func (s *RuleStore) Save(ctx context.Context, r rules.Rule) error {
	keywords, err := json.Marshal(r.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}
	toolConfig, err := json.Marshal(orEmptyConfig(r.ToolConfig))
	if err != nil {
		return fmt.Errorf("encoding tool config: %w", err)
	}
	quickReplies, err := json.Marshal(orEmptyStrings(r.QuickReplies))
	if err != nil {
		return fmt.Errorf("encoding quick replies: %w", err)
	}

	active := 0
	if r.Active {
		active = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rules (id, name, keywords, mode, priority, active,
		                   model_id, instructions, handoff_text, tool_config,
		                   quick_replies, trigger_count, total_tokens, avg_response_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			keywords = excluded.keywords,
			mode = excluded.mode,
			priority = excluded.priority,
			active = excluded.active,
			model_id = excluded.model_id,
			instructions = excluded.instructions,
			handoff_text = excluded.handoff_text,
			tool_config = excluded.tool_config,
			quick_replies = excluded.quick_replies`,
		r.ID, r.Name, string(keywords), string(r.Mode), r.Priority, active,
		r.ModelID, r.Instructions, r.HandoffText, string(toolConfig),
		string(quickReplies), r.TriggerCount, r.TotalTokens, r.AvgResponseMillis)
	if err != nil {
		return fmt.Errorf("saving rule %s: %w", r.ID, err)
	}
	return nil
}

func orEmptyConfig(m map[string]tools.Enablement) map[string]tools.Enablement {
	if m == nil {
		return map[string]tools.Enablement{}
	}
	return m
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
