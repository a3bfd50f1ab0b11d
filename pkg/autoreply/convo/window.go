// Package convo implements short-term conversation memory: a bounded rolling
// window of turns per conversation plus the rule binding that says which
// rule currently owns the conversation, both expiring on a TTL.
package convo

import "time"

const (
	// MaxWindowEntries bounds the window: 6 turns, i.e. 3 user/assistant
	// pairs. The oldest pair is evicted first.
	MaxWindowEntries = 6

	// DefaultTTL is how long an idle conversation's memory survives.
	DefaultTTL = 15 * time.Minute
)

// SenderRole identifies who produced a turn. Wire-specific strings
// ("user", "assistant", "bot") exist only at the transport and provider
// edges; the core uses this enum.
type SenderRole int

const (
	RoleUser SenderRole = iota
	RoleAssistant
	RoleSystem
)

// String returns the canonical name, used for logs and persistence.
func (r SenderRole) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseRole maps a persisted role name back to the enum. Unknown names,
// including the legacy "bot" and "account" spellings, are normalized.
func ParseRole(s string) SenderRole {
	switch s {
	case "assistant", "bot":
		return RoleAssistant
	case "system":
		return RoleSystem
	default:
		return RoleUser
	}
}

// Turn is one utterance in a conversation. Ephemeral.
type Turn struct {
	Role SenderRole
	Text string
}

// Window is the bounded rolling turn list for one conversation.
type Window struct {
	Turns []Turn
}

// AppendPair adds a user/assistant exchange, evicting the oldest pair when
// the window would exceed MaxWindowEntries.
func (w *Window) AppendPair(userText, assistantText string) {
	w.Turns = append(w.Turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: assistantText},
	)
	for len(w.Turns) > MaxWindowEntries {
		w.Turns = w.Turns[2:]
	}
}

// Pairs returns the number of complete exchanges in the window.
func (w *Window) Pairs() int {
	return len(w.Turns) / 2
}

// RuleBinding records which rule owns a conversation's automated replies.
type RuleBinding struct {
	RuleID  string
	BoundAt time.Time
}
