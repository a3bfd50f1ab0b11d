package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
)

// ruleBroker adapts the function registry, scoped to one rule's enablement
// map and one caller, into the llm.ToolBroker the client drives. One broker
// lives for exactly one message-handling invocation.
type ruleBroker struct {
	ctx      context.Context
	registry *tools.Registry
	cfg      map[string]tools.Enablement
	call     tools.CallContext
	logger   *slog.Logger
}

func newRuleBroker(ctx context.Context, registry *tools.Registry, cfg map[string]tools.Enablement, call tools.CallContext, logger *slog.Logger) *ruleBroker {
	return &ruleBroker{
		ctx:      ctx,
		registry: registry,
		cfg:      cfg,
		call:     call,
		logger:   logger,
	}
}

// Definitions converts the enabled tools into the provider wire format.
func (b *ruleBroker) Definitions() []llm.ToolDefinition {
	defs := b.registry.Definitions(b.cfg)
	out := make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		schema, err := json.Marshal(d.Parameters)
		if err != nil {
			b.logger.Warn("tool schema marshal failed", "tool", d.Name, "error", err)
			continue
		}
		out = append(out, llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schema,
			},
		})
	}
	return out
}

// Execute dispatches each requested call through the registry. Failures
// come back inside the outcome content so the model can recover
// conversationally.
func (b *ruleBroker) Execute(calls []llm.ToolCall) []llm.ToolOutcome {
	outcomes := make([]llm.ToolOutcome, len(calls))
	for i, call := range calls {
		result := b.registry.Execute(b.ctx, b.cfg, call.Function.Name, call.Function.Arguments, b.call)
		outcomes[i] = llm.ToolOutcome{
			ToolCallID: call.ID,
			Name:       result.Name,
			Content:    result.Content,
		}
	}
	return outcomes
}
