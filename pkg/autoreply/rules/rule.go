// Package rules implements keyword-triggered reply rules: the rule model,
// a TTL cache over the active rule set, and the router that matches inbound
// text and flips the per-conversation routing state.
package rules

import (
	"context"

	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
)

// Mode selects what happens when a rule fires.
type Mode string

const (
	// ModeAutomate enables LLM-driven automated replies for the conversation.
	ModeAutomate Mode = "automate"

	// ModeHandoff sends the rule's static text and hands the conversation
	// to a human operator.
	ModeHandoff Mode = "handoff"
)

// RoutingState is the per-conversation flag that says whether automated
// replies are currently active. Stored in the user registry, mutated only
// by Router.Trigger.
type RoutingState string

const (
	RoutingAutomate RoutingState = "automate"
	RoutingHandoff  RoutingState = "handoff"
	RoutingIdle     RoutingState = "idle"
)

// Rule is a configured keyword-triggered behavior. Content fields are
// mutated by the admin collaborator; counters are mutated here.
type Rule struct {
	ID       string
	Name     string
	Keywords []string

	// Mode is what firing this rule does (automate or handoff).
	Mode Mode

	// Priority orders rule evaluation, ascending = higher precedence.
	// Ties keep storage order.
	Priority int

	Active bool

	// ModelID and Instructions configure the LLM for automate rules.
	ModelID      string
	Instructions string

	// HandoffText is the static reply for handoff rules.
	HandoffText string

	// ToolConfig maps tool name to its enablement for this rule.
	ToolConfig map[string]tools.Enablement

	// QuickReplies are offered alongside automated replies on transports
	// that support them.
	QuickReplies []string

	// Counters, maintained by the router and orchestrator.
	TriggerCount      int64
	TotalTokens       int64
	AvgResponseMillis float64
}

// Store is the persistence surface the rules package needs. The sqlite
// implementation lives in pkg/autoreply/store.
type Store interface {
	// ActiveRules returns all active rules; order of equal priorities must
	// be the storage order.
	ActiveRules(ctx context.Context) ([]Rule, error)

	// IncrementTrigger atomically adds 1 to the rule's trigger count and
	// returns the post-increment value. Must be a single atomic update,
	// never read-modify-write.
	IncrementTrigger(ctx context.Context, ruleID string) (int64, error)

	// UpdateStats adds tokensUsed to the rule's token total and writes the
	// new running response-time average.
	UpdateStats(ctx context.Context, ruleID string, tokensUsed int64, avgResponseMillis float64) error
}

// UserRegistry holds per-conversation routing state. The conversation key is
// the channel user id.
type UserRegistry interface {
	RoutingState(ctx context.Context, channelUserID string) (RoutingState, error)
	SetRoutingState(ctx context.Context, channelUserID string, state RoutingState) error
}
