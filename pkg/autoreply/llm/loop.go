package llm

import (
	"context"
	"strings"
)

// SendMessage sends the conversation to the provider and resolves tool-call
// responses until the model produces a final answer or the depth bound is
// hit. The loop is explicitly iterative with a depth counter: provider calls
// happen at depths 0..maxDepth-1, and a response carrying tool calls at
// depth maxDepth-1 stops the loop and yields the canned overflow message
// with no further provider calls.
func (c *Client) SendMessage(ctx context.Context, messages []Message, opts Options) (*Reply, error) {
	var tools []ToolDefinition
	if opts.Broker != nil {
		tools = opts.Broker.Definitions()
	}

	// Work on a copy so callers keep their slice.
	convo := make([]Message, len(messages))
	copy(convo, messages)

	reply := &Reply{}

	for depth := 0; ; depth++ {
		resp, err := c.complete(ctx, convo, tools, opts)
		if err != nil {
			return nil, err
		}
		reply.Rounds++
		reply.Usage.Add(resp.Usage)

		choice := resp.Choices[0]
		calls := choice.Message.ToolCalls

		if len(calls) == 0 || opts.Broker == nil {
			reply.Content = strings.TrimSpace(choice.Message.Content)
			return reply, nil
		}

		// The model wants more tools but this was the last allowed call.
		if depth == c.maxDepth-1 {
			c.logger.Warn("tool-call depth bound reached",
				"depth", depth+1,
				"max_depth", c.maxDepth,
				"pending_calls", len(calls),
			)
			reply.Content = c.overflowMsg
			reply.DepthExceeded = true
			return reply, nil
		}

		convo = append(convo, Message{
			Role:      RoleAssistant,
			Content:   choice.Message.Content,
			ToolCalls: calls,
		})

		outcomes := opts.Broker.Execute(calls)
		for _, out := range outcomes {
			convo = append(convo, Message{
				Role:       RoleTool,
				Content:    out.Content,
				ToolCallID: out.ToolCallID,
			})
		}

		c.logger.Debug("tool round resolved",
			"depth", depth+1,
			"calls", len(calls),
		)
	}
}
