package tools

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestEnablementDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind EnablementKind
		wantKey  string
	}{
		{"bare true", `true`, Enabled, ""},
		{"bare false", `false`, Disabled, ""},
		{"object enabled", `{"enabled": true}`, Enabled, ""},
		{"object disabled", `{"enabled": false, "categories": ["faq"]}`, Disabled, ""},
		{"object with config", `{"enabled": true, "categories": ["faq", "news"]}`, EnabledWithConfig, "categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Enablement
			if err := json.Unmarshal([]byte(tt.raw), &e); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, e.Kind)
			}
			if tt.wantKey != "" {
				if _, ok := e.Config[tt.wantKey]; !ok {
					t.Errorf("expected config key %q, got %v", tt.wantKey, e.Config)
				}
			}
		})
	}

	var e Enablement
	if err := json.Unmarshal([]byte(`"yes"`), &e); err == nil {
		t.Error("a string must not decode as an enablement")
	}
}

func TestEnablementDecodeYAML(t *testing.T) {
	raw := `
order_lookup: true
account_info: false
content_search:
  enabled: true
  categories: [faq, policies]
`
	var cfg map[string]Enablement
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg["order_lookup"].On() {
		t.Error("order_lookup should be on")
	}
	if cfg["account_info"].On() {
		t.Error("account_info should be off")
	}
	cs := cfg["content_search"]
	if cs.Kind != EnabledWithConfig {
		t.Fatalf("expected EnabledWithConfig, got %v", cs.Kind)
	}
	if got := stringsArg(cs.Config, "categories"); len(got) != 2 || got[1] != "policies" {
		t.Errorf("unexpected categories: %v", got)
	}
}

func TestEnablementEncodeCompact(t *testing.T) {
	tests := []struct {
		name string
		e    Enablement
		want string
	}{
		{"enabled", Enable(), `true`},
		{"disabled", Disable(), `false`},
		{"with config", EnableWith(map[string]any{"limit": 5}), `{"enabled":true,"limit":5}`},
		{"empty config collapses", EnableWith(nil), `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.e)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, out)
			}
		})
	}
}

func TestEnablementRoundTripPreservesKind(t *testing.T) {
	in := EnableWith(map[string]any{"categories": []any{"faq"}})

	out, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back Enablement
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Kind != EnabledWithConfig {
		t.Errorf("round trip lost the config variant: %v", back.Kind)
	}
}
