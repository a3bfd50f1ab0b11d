// Package engine implements the orchestrator that composes the router,
// conversation memory, function registry, LLM client, and transport into
// the per-message reply flow, plus its configuration surface.
package engine

// Config holds all engine configuration.
type Config struct {
	// Name is the bot display name prefixed to automated replies.
	Name string `yaml:"name"`

	// Model is the default LLM model, used when a rule has none of its own.
	Model string `yaml:"model"`

	// Timezone renders the current-time context in prompts
	// (e.g. "Asia/Bangkok").
	Timezone string `yaml:"timezone"`

	// API configures the LLM provider endpoint.
	API APIConfig `yaml:"api"`

	// Database configures the SQLite store.
	Database DatabaseConfig `yaml:"database"`

	// Rules configures the rule cache.
	Rules RulesConfig `yaml:"rules"`

	// Memory configures conversation memory.
	Memory MemoryConfig `yaml:"memory"`

	// LLM configures retries and the tool-call depth bound.
	LLM LLMConfig `yaml:"llm"`

	// Webhook configures the inbound HTTP surface.
	Webhook WebhookConfig `yaml:"webhook"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the chat-completions provider.
type APIConfig struct {
	// BaseURL is the OpenAI-compatible endpoint root.
	BaseURL string `yaml:"base_url"`

	// APIKey is resolved through keyring → env → this value.
	APIKey string `yaml:"api_key"`

	// ReasoningEffort is an optional hint ("low", "medium", "high") sent
	// only to model families that accept it.
	ReasoningEffort string `yaml:"reasoning_effort"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	// Path is the SQLite file path.
	Path string `yaml:"path"`
}

// RulesConfig configures the rule cache.
type RulesConfig struct {
	// CacheTTLMinutes is how long the active rule set stays cached.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

// MemoryConfig configures conversation memory.
type MemoryConfig struct {
	// TTLMinutes is how long idle conversation memory survives.
	TTLMinutes int `yaml:"ttl_minutes"`
}

// LLMConfig configures the provider client.
type LLMConfig struct {
	// MaxAttempts bounds transient-failure retries.
	MaxAttempts int `yaml:"max_attempts"`

	// MaxDepth bounds consecutive tool-call round-trips per message.
	MaxDepth int `yaml:"max_depth"`

	// OverflowMessage replaces the reply when the depth bound is hit.
	OverflowMessage string `yaml:"overflow_message"`
}

// WebhookConfig configures the inbound HTTP server.
type WebhookConfig struct {
	// Addr is the listen address for `autoreply serve`.
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Autoreply",
		Model:    "gpt-4o-mini",
		Timezone: "UTC",
		API: APIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Database: DatabaseConfig{
			Path: "./data/autoreply.db",
		},
		Rules: RulesConfig{
			CacheTTLMinutes: 30,
		},
		Memory: MemoryConfig{
			TTLMinutes: 15,
		},
		LLM: LLMConfig{
			MaxAttempts: 3,
			MaxDepth:    5,
		},
		Webhook: WebhookConfig{
			Addr: ":8787",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
