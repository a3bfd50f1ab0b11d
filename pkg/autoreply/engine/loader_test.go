package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfigOverlaysDefaults(t *testing.T) {
	raw := `
name: Sparky
model: gpt-4o
memory:
  ttl_minutes: 5
`
	cfg, err := ParseConfig([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Name != "Sparky" || cfg.Model != "gpt-4o" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Memory.TTLMinutes != 5 {
		t.Errorf("expected memory ttl 5, got %d", cfg.Memory.TTLMinutes)
	}
	// Untouched sections keep their defaults.
	if cfg.Rules.CacheTTLMinutes != 30 {
		t.Errorf("default rule cache ttl lost: %d", cfg.Rules.CacheTTLMinutes)
	}
	if cfg.LLM.MaxDepth != 5 {
		t.Errorf("default llm depth lost: %d", cfg.LLM.MaxDepth)
	}
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_AUTOREPLY_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "api:\n  api_key: ${TEST_AUTOREPLY_KEY}\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.APIKey != "sk-from-env" {
		t.Errorf("env var not expanded: %q", cfg.API.APIKey)
	}
}

func TestExpandEnvVarsKeepsUnsetPlaceholders(t *testing.T) {
	got := expandEnvVars("key: ${DEFINITELY_NOT_SET_123}")
	if got != "key: ${DEFINITELY_NOT_SET_123}" {
		t.Errorf("unset placeholder must survive, got %q", got)
	}
}

func TestIsEnvReference(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"${OPENAI_API_KEY}", true},
		{"$OPENAI_API_KEY", true},
		{"sk-abc123", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEnvReference(tt.in); got != tt.want {
			t.Errorf("IsEnvReference(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
