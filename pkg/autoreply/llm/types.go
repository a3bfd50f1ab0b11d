// Package llm implements the chat-completions client: an OpenAI-compatible
// transport with linear-backoff retries, a depth-bounded iterative
// tool-calling loop, verbatim usage accounting, and a standalone credential
// health check.
package llm

import "encoding/json"

// Wire roles. The core's SenderRole enum maps to these only at this edge.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is one entry in the provider conversation, in the OpenAI chat
// format. Supports system, user, assistant (with optional tool_calls), and
// tool-result messages.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition is an OpenAI-compatible tool definition.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes one callable function exposed to the model.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall is a tool invocation the model requested.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutcome is one executed tool call's result, fed back to the model as
// a tool-response message.
type ToolOutcome struct {
	ToolCallID string
	Name       string
	Content    string
}

// ToolBroker resolves the model's tool-call requests. The orchestrator
// supplies an implementation backed by the function registry scoped to the
// active rule.
type ToolBroker interface {
	// Definitions returns the tool definitions offered to the model.
	Definitions() []ToolDefinition

	// Execute runs the requested calls and returns one outcome per call,
	// in order. Failures are carried inside the outcome content; Execute
	// itself never fails.
	Execute(calls []ToolCall) []ToolOutcome
}

// Usage is provider-reported token usage, passed through verbatim.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage report.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Options configures one SendMessage invocation.
type Options struct {
	// Model is the provider model id. Required.
	Model string

	// Broker, when set, resolves tool calls. Without it the model gets no
	// tools and any tool-call response is treated as final empty content.
	Broker ToolBroker

	// ReasoningEffort is an optional provider hint ("low", "medium",
	// "high") sent only for model families that accept it.
	ReasoningEffort string
}

// Reply is the final outcome of one SendMessage invocation, after any tool
// round-trips.
type Reply struct {
	Content string

	// Usage aggregates token usage across every provider call of the
	// invocation.
	Usage Usage

	// Rounds is how many provider round-trips the invocation took.
	Rounds int

	// DepthExceeded is set when the tool-call loop hit its bound and
	// Content carries the canned overflow message.
	DepthExceeded bool
}

// chatRequest is the provider request body.
type chatRequest struct {
	Model           string           `json:"model"`
	Messages        []Message        `json:"messages"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	ReasoningEffort string           `json:"reasoning_effort,omitempty"`
}

// chatResponse is the provider response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
