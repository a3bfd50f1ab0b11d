// Package tools implements the function registry exposed to the LLM:
// tool registration with JSON-schema parameter definitions, per-rule
// enablement, argument validation, and dispatch. Four read-only query tools
// ship with the engine: order lookup, account info, product search, and
// content search.
package tools

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// EnablementKind tags the enablement variant for one tool on one rule.
type EnablementKind int

const (
	// Disabled: the tool is not offered to the LLM.
	Disabled EnablementKind = iota

	// Enabled: the tool is offered with no extra configuration.
	Enabled

	// EnabledWithConfig: the tool is offered and carries configuration
	// (e.g. the content-search category allowlist).
	EnabledWithConfig
)

// Enablement is the tagged variant replacing the legacy bool-or-object
// tool flags. Decodes from either a bare boolean or an object of the form
// {enabled: bool, ...config}.
type Enablement struct {
	Kind   EnablementKind
	Config map[string]any
}

// On reports whether the tool is offered to the LLM.
func (e Enablement) On() bool {
	return e.Kind == Enabled || e.Kind == EnabledWithConfig
}

// Enable returns the plain enabled variant.
func Enable() Enablement {
	return Enablement{Kind: Enabled}
}

// EnableWith returns the enabled-with-config variant.
func EnableWith(config map[string]any) Enablement {
	if len(config) == 0 {
		return Enablement{Kind: Enabled}
	}
	return Enablement{Kind: EnabledWithConfig, Config: config}
}

// Disable returns the disabled variant.
func Disable() Enablement {
	return Enablement{Kind: Disabled}
}

// UnmarshalJSON accepts `true`, `false`, or `{"enabled": bool, ...}`.
func (e *Enablement) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*e = Enable()
		} else {
			*e = Disable()
		}
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tool enablement must be a boolean or an object: %w", err)
	}
	*e = fromObject(obj)
	return nil
}

// MarshalJSON emits the compact form: booleans for plain variants, the
// object form only when config is present.
func (e Enablement) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EnabledWithConfig:
		obj := map[string]any{"enabled": true}
		for k, v := range e.Config {
			obj[k] = v
		}
		return json.Marshal(obj)
	case Enabled:
		return json.Marshal(true)
	default:
		return json.Marshal(false)
	}
}

// UnmarshalYAML mirrors UnmarshalJSON for config files.
func (e *Enablement) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err == nil {
		if b {
			*e = Enable()
		} else {
			*e = Disable()
		}
		return nil
	}

	var obj map[string]any
	if err := value.Decode(&obj); err != nil {
		return fmt.Errorf("tool enablement must be a boolean or a mapping: %w", err)
	}
	*e = fromObject(obj)
	return nil
}

func fromObject(obj map[string]any) Enablement {
	enabled, _ := obj["enabled"].(bool)
	if !enabled {
		return Disable()
	}

	config := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "enabled" {
			continue
		}
		config[k] = v
	}
	return EnableWith(config)
}
