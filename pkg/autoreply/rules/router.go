package rules

import (
	"context"
	"log/slog"
	"strings"
)

// Router matches inbound text against the cached rule set and performs the
// routing-state transition when a rule fires.
type Router struct {
	cache  *Cache
	store  Store
	users  UserRegistry
	logger *slog.Logger
}

// NewRouter creates a router over the rule cache and user registry.
func NewRouter(cache *Cache, store Store, users UserRegistry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cache:  cache,
		store:  store,
		users:  users,
		logger: logger.With("component", "router"),
	}
}

// Match returns the highest-precedence active rule whose keyword set matches
// the text, or nil if none does. Matching is case-insensitive substring
// containment after trimming; the first matching rule in priority order
// short-circuits further evaluation.
func (r *Router) Match(ctx context.Context, text string) (*Rule, error) {
	active, err := r.cache.Active(ctx)
	if err != nil {
		return nil, err
	}

	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, nil
	}

	for i := range active {
		rule := &active[i]
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if kw == normalized || strings.Contains(normalized, kw) {
				r.logger.Debug("rule matched",
					"rule_id", rule.ID,
					"rule", rule.Name,
					"keyword", kw,
				)
				return rule, nil
			}
		}
	}

	return nil, nil
}

// Trigger records that a rule fired for a conversation: it sets the routing
// state per the rule's mode and bumps the trigger counter with an atomic +1.
// Returns the post-increment trigger count. Both writes are non-fatal on
// failure; a persistence error is logged and the count falls back to the
// rule's cached value plus one.
func (r *Router) Trigger(ctx context.Context, rule *Rule, channelUserID string) int64 {
	state := RoutingAutomate
	if rule.Mode == ModeHandoff {
		state = RoutingHandoff
	}

	// Setting the same state twice is a no-op by construction; the write is
	// idempotent.
	if err := r.users.SetRoutingState(ctx, channelUserID, state); err != nil {
		r.logger.Warn("routing state update failed",
			"rule_id", rule.ID,
			"channel_user", channelUserID,
			"error", err,
		)
	}

	count, err := r.store.IncrementTrigger(ctx, rule.ID)
	if err != nil {
		r.logger.Warn("trigger count increment failed",
			"rule_id", rule.ID,
			"error", err,
		)
		count = rule.TriggerCount + 1
	}

	r.logger.Info("rule triggered",
		"rule_id", rule.ID,
		"rule", rule.Name,
		"mode", string(rule.Mode),
		"trigger_count", count,
	)
	return count
}

// AutomateEnabled reports whether automated replies are active for the
// conversation. Registry read failures are treated as "not enabled".
func (r *Router) AutomateEnabled(ctx context.Context, channelUserID string) bool {
	state, err := r.users.RoutingState(ctx, channelUserID)
	if err != nil {
		r.logger.Warn("routing state read failed",
			"channel_user", channelUserID,
			"error", err,
		)
		return false
	}
	return state == RoutingAutomate
}
