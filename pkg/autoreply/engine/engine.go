package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/sjson"

	"github.com/openchat-labs/autoreply/pkg/autoreply/convo"
	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
	"github.com/openchat-labs/autoreply/pkg/autoreply/rules"
	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
	"github.com/openchat-labs/autoreply/pkg/autoreply/transport"
)

// Apology texts. Failures degrade to these; a raw provider error never
// reaches the user.
const (
	apologyGeneric    = "Sorry, something went wrong while preparing a reply. Please try again in a moment."
	apologyCredential = "Sorry, automated replies aren't available right now."
)

// MessageSink is the append-only message log the engine writes replies to.
// Implemented by store.MessageLog.
type MessageSink interface {
	Append(ctx context.Context, channelUserID string, role convo.SenderRole, text, correlationToken, rawMetadata string) (string, error)
}

// Result is the outcome of handling one inbound message.
type Result struct {
	// Triggered is set when a keyword rule matched this message.
	Triggered bool

	// RuleID identifies the rule that produced the response, if any.
	RuleID string

	// Response is the text sent to the user, empty when no action was
	// taken.
	Response string

	// Err carries the internal failure, if any. Already logged; the
	// user-visible behavior on failure is silence or an apology.
	Err error
}

// Engine composes the router, conversation memory, function registry, LLM
// client, transport, and message log into the per-message reply flow. One
// inbound message is handled end to end by one call; concurrency exists
// only across independent messages.
type Engine struct {
	cfg       *Config
	cache     *rules.Cache
	router    *rules.Router
	ruleStore rules.Store
	memory    *convo.Store
	registry  *tools.Registry
	client    *llm.Client
	transport transport.Transport
	messages  MessageSink

	// now is swappable for tests.
	now func() time.Time

	logger *slog.Logger
}

// New wires up an engine. messages may be nil when running without a
// message log (persistence failures are non-fatal anyway).
func New(cfg *Config, cache *rules.Cache, router *rules.Router, ruleStore rules.Store,
	memory *convo.Store, registry *tools.Registry, client *llm.Client,
	tr transport.Transport, messages MessageSink, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		cache:     cache,
		router:    router,
		ruleStore: ruleStore,
		memory:    memory,
		registry:  registry,
		client:    client,
		transport: tr,
		messages:  messages,
		now:       time.Now,
		logger:    logger.With("component", "engine"),
	}
}

// RuleCache exposes the cache so admin surfaces can invalidate it after
// rule mutations.
func (e *Engine) RuleCache() *rules.Cache {
	return e.cache
}

// HandleUserMessage runs the full per-message flow: keyword match →
// trigger → handoff or automation → delivery → persistence → memory and
// stats update. It never returns an uncaught failure; everything lands in
// the Result.
func (e *Engine) HandleUserMessage(ctx context.Context, accountID, channelUserID, text, replyHandle string, eventTime time.Time) Result {
	logger := e.logger.With(
		"account", accountID,
		"channel_user", channelUserID,
	)

	matched, err := e.router.Match(ctx, text)
	if err != nil {
		logger.Error("rule matching failed", "error", err)
		return Result{Err: err}
	}

	if matched != nil {
		count := e.router.Trigger(ctx, matched, channelUserID)

		if matched.Mode == rules.ModeHandoff {
			return e.handleHandoff(ctx, matched, channelUserID, replyHandle, logger)
		}
		return e.handleAutomate(ctx, matched, count, true, channelUserID, text, replyHandle, eventTime, logger)
	}

	// No keyword match: continue only if automation is already active for
	// this conversation.
	if !e.router.AutomateEnabled(ctx, channelUserID) {
		logger.Debug("no rule matched and automation inactive, ignoring")
		return Result{}
	}

	rule, err := e.resolveAutomateRule(ctx, channelUserID)
	if err != nil {
		logger.Error("rule resolution failed", "error", err)
		return Result{Err: err}
	}
	if rule == nil {
		logger.Debug("automation active but no automate rule available, ignoring")
		return Result{}
	}

	// A continued conversation is still a trigger event for the bound
	// rule's statistics.
	count, err := e.ruleStore.IncrementTrigger(ctx, rule.ID)
	if err != nil {
		logger.Warn("trigger count increment failed", "rule_id", rule.ID, "error", err)
		count = rule.TriggerCount + 1
	}

	return e.handleAutomate(ctx, rule, count, false, channelUserID, text, replyHandle, eventTime, logger)
}

// handleHandoff sends the rule's static text and stops. No LLM call.
func (e *Engine) handleHandoff(ctx context.Context, rule *rules.Rule, channelUserID, replyHandle string, logger *slog.Logger) Result {
	reply := fmt.Sprintf("[%s] %s", rule.Name, rule.HandoffText)

	token, err := e.transport.Send(ctx, replyHandle, reply, nil)
	if err != nil {
		logger.Error("handoff send failed", "rule_id", rule.ID, "error", err)
		return Result{Triggered: true, RuleID: rule.ID, Err: err}
	}

	e.persistReply(ctx, channelUserID, reply, token, rule.ID, "", 0, 0, logger)

	logger.Info("conversation handed off",
		"rule_id", rule.ID,
		"rule", rule.Name,
	)
	return Result{Triggered: true, RuleID: rule.ID, Response: reply}
}

// handleAutomate runs the LLM path for the resolved rule.
func (e *Engine) handleAutomate(ctx context.Context, rule *rules.Rule, triggerCount int64, triggered bool,
	channelUserID, text, replyHandle string, eventTime time.Time, logger *slog.Logger) Result {

	model := rule.ModelID
	if model == "" {
		model = e.cfg.Model
	}

	// A rule with no usable credential degrades to a polite apology, never
	// a crash.
	if e.cfg.API.APIKey == "" {
		logger.Warn("no API credential for automate rule", "rule_id", rule.ID)
		apology := fmt.Sprintf("[%s] %s", e.cfg.Name, apologyCredential)
		if _, err := e.transport.Send(ctx, replyHandle, apology, nil); err != nil {
			logger.Error("apology send failed", "error", err)
		}
		return Result{Triggered: triggered, RuleID: rule.ID, Response: apology, Err: llm.ErrNoCredential}
	}

	if err := e.transport.ShowTyping(ctx, replyHandle); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	window, _, _ := e.memory.Get(channelUserID)
	messages := e.buildMessages(rule, window, text, eventTime)

	broker := newRuleBroker(ctx, e.registry, rule.ToolConfig, tools.CallContext{ChannelUserID: channelUserID}, logger)

	start := e.now()
	reply, err := e.client.SendMessage(ctx, messages, llm.Options{
		Model:           model,
		Broker:          broker,
		ReasoningEffort: e.cfg.API.ReasoningEffort,
	})
	elapsed := e.now().Sub(start)

	if err != nil {
		logger.Error("LLM call failed",
			"rule_id", rule.ID,
			"model", model,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		apology := fmt.Sprintf("[%s] %s", e.cfg.Name, apologyGeneric)
		if _, sendErr := e.transport.Send(ctx, replyHandle, apology, nil); sendErr != nil {
			logger.Error("apology send failed", "error", sendErr)
		}
		return Result{Triggered: triggered, RuleID: rule.ID, Response: apology, Err: err}
	}

	response := fmt.Sprintf("[%s] %s", e.cfg.Name, reply.Content)

	token, err := e.transport.Send(ctx, replyHandle, response, rule.QuickReplies)
	if err != nil {
		// The reply is lost but the conversation state should still
		// advance; delivery failures are logged, not raised.
		logger.Error("reply send failed", "rule_id", rule.ID, "error", err)
	}

	e.persistReply(ctx, channelUserID, response, token, rule.ID, model,
		reply.Usage.TotalTokens, elapsed.Milliseconds(), logger)

	window.AppendPair(text, reply.Content)
	e.memory.Put(channelUserID, window, rule.ID)

	e.updateStats(ctx, rule, triggerCount, reply.Usage.TotalTokens, elapsed, logger)

	logger.Info("automated reply sent",
		"rule_id", rule.ID,
		"model", model,
		"rounds", reply.Rounds,
		"tokens", reply.Usage.TotalTokens,
		"duration_ms", elapsed.Milliseconds(),
		"depth_exceeded", reply.DepthExceeded,
	)
	return Result{Triggered: triggered, RuleID: rule.ID, Response: response}
}

// resolveAutomateRule picks the rule that owns a continued conversation:
// the bound rule when it is still active and automate, else the
// highest-priority active automate rule, else nil.
func (e *Engine) resolveAutomateRule(ctx context.Context, channelUserID string) (*rules.Rule, error) {
	active, err := e.cache.Active(ctx)
	if err != nil {
		return nil, err
	}

	_, binding, ok := e.memory.Get(channelUserID)
	if ok && binding.RuleID != "" {
		for i := range active {
			if active[i].ID == binding.RuleID && active[i].Mode == rules.ModeAutomate {
				return &active[i], nil
			}
		}
	}

	// Active rules are priority-ascending; the first automate rule wins.
	for i := range active {
		if active[i].Mode == rules.ModeAutomate {
			return &active[i], nil
		}
	}
	return nil, nil
}

// buildMessages assembles the provider conversation: system instructions
// with a current-time context line, the memory window, and the new user
// turn.
func (e *Engine) buildMessages(rule *rules.Rule, window convo.Window, text string, eventTime time.Time) []llm.Message {
	at := eventTime
	if at.IsZero() {
		at = e.now()
	}
	if loc, err := time.LoadLocation(e.cfg.Timezone); err == nil {
		at = at.In(loc)
	}

	system := rule.Instructions
	if system != "" {
		system += "\n\n"
	}
	system += "Current time: " + at.Format("Mon, 2 Jan 2006 15:04 (MST)")

	messages := make([]llm.Message, 0, len(window.Turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, turn := range window.Turns {
		messages = append(messages, llm.Message{
			Role:    wireRole(turn.Role),
			Content: turn.Text,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	return messages
}

// wireRole maps the core role enum to provider wire strings at this edge.
func wireRole(r convo.SenderRole) string {
	switch r {
	case convo.RoleAssistant:
		return llm.RoleAssistant
	case convo.RoleSystem:
		return llm.RoleSystem
	default:
		return llm.RoleUser
	}
}

// persistReply appends the outbound message to the log with its metadata.
// Log failures never block the user-visible response.
func (e *Engine) persistReply(ctx context.Context, channelUserID, text, token, ruleID, model string,
	tokensUsed int, responseMillis int64, logger *slog.Logger) {
	if e.messages == nil {
		return
	}

	meta := "{}"
	meta, _ = sjson.Set(meta, "rule_id", ruleID)
	if model != "" {
		meta, _ = sjson.Set(meta, "model", model)
		meta, _ = sjson.Set(meta, "tokens_used", tokensUsed)
		meta, _ = sjson.Set(meta, "response_time", responseMillis)
	}

	if _, err := e.messages.Append(ctx, channelUserID, convo.RoleAssistant, text, token, meta); err != nil {
		logger.Warn("message log append failed", "error", err)
	}
}

// updateStats folds this event into the rule's counters. count is the
// post-increment trigger count for this event.
func (e *Engine) updateStats(ctx context.Context, rule *rules.Rule, count int64, tokensUsed int, elapsed time.Duration, logger *slog.Logger) {
	newAvg := RunningAverage(rule.AvgResponseMillis, count, float64(elapsed.Milliseconds()))

	if err := e.ruleStore.UpdateStats(ctx, rule.ID, int64(tokensUsed), newAvg); err != nil {
		logger.Warn("rule stats update failed", "rule_id", rule.ID, "error", err)
		return
	}

	// Keep the cached copy roughly current so the next event in this TTL
	// window folds into the right average.
	rule.TriggerCount = count
	rule.TotalTokens += int64(tokensUsed)
	rule.AvgResponseMillis = newAvg
}
