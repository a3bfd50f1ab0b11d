package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultToolTimeout is the maximum time a single tool execution can take.
const DefaultToolTimeout = 30 * time.Second

var (
	// ErrUnknownTool is returned when the LLM requests a tool that is not
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrValidation marks malformed tool arguments. Surfaced to the LLM as
	// a structured failure so it can recover conversationally.
	ErrValidation = errors.New("invalid tool arguments")

	// ErrNotLinked is returned when a tool requires a linked account or
	// commerce identity and the caller has none.
	ErrNotLinked = errors.New("no linked account")

	// ErrNoResults is returned by search tools that found nothing.
	ErrNoResults = errors.New("no results")
)

// CallContext carries the caller identity into every tool execution.
type CallContext struct {
	// ChannelUserID scopes lookups to the user the conversation belongs to.
	ChannelUserID string
}

// HandlerFunc executes a tool with parsed arguments.
type HandlerFunc func(ctx context.Context, args map[string]any, call CallContext) (any, error)

// Tool is one invocable function offered to the LLM.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON-schema object describing the arguments.
	Parameters map[string]any

	// NeedsIdentity makes Execute inject the caller's channel user id into
	// the arguments; the model never supplies it.
	NeedsIdentity bool

	// Describe, when set, extends the description from the tool's
	// enablement config (the content-search tool lists its allowed
	// categories this way).
	Describe func(config map[string]any) string

	// Validate checks parsed arguments before the handler runs.
	Validate func(args map[string]any) error

	Handler HandlerFunc
}

// Definition is the name/description/schema triple emitted to the LLM.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Result is the structured outcome of one tool execution. Execution never
// raises past this value; failures are carried in OK/Err and a readable
// Content the LLM can act on.
type Result struct {
	Name    string
	OK      bool
	Content string
	Err     error
}

// Registry holds the invocable tools and dispatches calls.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*Tool
	timeout time.Duration
	logger  *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]*Tool),
		timeout: DefaultToolTimeout,
		logger:  logger.With("component", "tools"),
	}
}

// Register adds a tool. A tool with the same name is overwritten.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	r.tools[t.Name] = t
	r.mu.Unlock()

	r.logger.Debug("tool registered", "name", t.Name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Enabled returns the registered tools whose enablement in cfg is on.
// Tools named in cfg but never registered are skipped.
func (r *Registry) Enabled(cfg map[string]Enablement) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	enabled := make([]*Tool, 0, len(cfg))
	for name, e := range cfg {
		if !e.On() {
			continue
		}
		if t, ok := r.tools[name]; ok {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// Definitions emits the definition for every enabled tool. Tools with a
// Describe hook get their description extended from their config.
func (r *Registry) Definitions(cfg map[string]Enablement) []Definition {
	defs := make([]Definition, 0, len(cfg))
	for _, t := range r.Enabled(cfg) {
		desc := t.Description
		if t.Describe != nil {
			desc = t.Describe(cfg[t.Name].Config)
		}
		defs = append(defs, Definition{
			Name:        t.Name,
			Description: desc,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// Execute looks up and runs one tool call. Arguments arrive as the raw JSON
// string the LLM produced. Only tools cfg enables are dispatched; anything
// else reports back as unknown, whether unregistered or just not enabled for
// the active rule. Config injection (content-search categories) and identity
// injection happen before the tool's own validator runs. All failures come
// back as a Result, never as a panic or error return.
func (r *Registry) Execute(ctx context.Context, cfg map[string]Enablement, name, rawArgs string, call CallContext) Result {
	result := Result{Name: name}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrUnknownTool, name)
		result.Content = fmt.Sprintf("Error: unknown tool %q", name)
		r.logger.Warn("unknown tool called", "name", name)
		return result
	}

	enablement, configured := cfg[name]
	if !configured || !enablement.On() {
		result.Err = fmt.Errorf("%w: %s", ErrUnknownTool, name)
		result.Content = fmt.Sprintf("Error: unknown tool %q", name)
		r.logger.Warn("disabled tool called", "name", name)
		return result
	}

	args, err := parseArgs(rawArgs)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrValidation, err)
		result.Content = fmt.Sprintf("Error parsing arguments: %v", err)
		r.logger.Warn("tool argument parse error", "name", name, "error", err)
		return result
	}

	// Inject the enablement config. Config-sourced keys overwrite whatever
	// the model supplied for them, same as the caller identity below.
	if enablement.Kind == EnabledWithConfig {
		for k, v := range enablement.Config {
			args[k] = v
		}
	}

	// Identity scoping: the caller's id always wins over anything the
	// model put in the arguments.
	if tool.NeedsIdentity {
		args["channel_user_id"] = call.ChannelUserID
	}

	if tool.Validate != nil {
		if err := tool.Validate(args); err != nil {
			result.Err = fmt.Errorf("%w: %v", ErrValidation, err)
			result.Content = fmt.Sprintf("Error: %v", err)
			r.logger.Warn("tool validation failed", "name", name, "error", err)
			return result
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := safeCall(execCtx, tool.Handler, args, call)
	duration := time.Since(start)

	if err != nil {
		result.Err = err
		result.Content = fmt.Sprintf("Error: %v", err)
		r.logger.Warn("tool execution failed",
			"name", name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return result
	}

	result.OK = true
	result.Content = formatOutput(output)

	r.logger.Info("tool executed",
		"name", name,
		"duration_ms", duration.Milliseconds(),
		"output_len", len(result.Content),
	)
	return result
}

// safeCall runs the handler and converts panics into errors so nothing
// escapes the registry boundary.
func safeCall(ctx context.Context, h HandlerFunc, args map[string]any, call CallContext) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return h(ctx, args, call)
}

// parseArgs parses the JSON-encoded argument string into a map.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return args, nil
}

// formatOutput converts tool output to the string the LLM receives.
func formatOutput(output any) string {
	if output == nil {
		return "OK"
	}
	switch v := output.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// stringArg reads an optional string argument.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// stringsArg reads a string-slice argument that may arrive as []any.
func stringsArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// intArg reads an optional integer argument (JSON numbers decode as float64).
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
