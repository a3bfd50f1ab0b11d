package engine

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfigFromFile reads and parses a YAML configuration file.
// Loads .env files first and expands environment variables in config
// values before parsing.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := ParseConfig([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// ParseConfig parses YAML bytes into a Config, overlaying the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// FindConfigFile searches standard locations for a config file. Returns ""
// when none exists.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"autoreply.yaml",
		"autoreply.yml",
		"configs/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadEnvFiles loads .env files from standard locations. godotenv.Load does
// not overwrite variables already set in the environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references with environment
// values. Unset variables keep their placeholder.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// resolveSecrets fills in the API key from the environment when the config
// value is empty or an unexpanded placeholder.
func resolveSecrets(cfg *Config) {
	if cfg.API.APIKey == "" || IsEnvReference(cfg.API.APIKey) {
		if key := os.Getenv("AUTOREPLY_API_KEY"); key != "" {
			cfg.API.APIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.API.APIKey = key
		}
	}
}

// IsEnvReference checks if a string is an environment variable reference.
func IsEnvReference(s string) bool {
	return strings.HasPrefix(s, "${") || strings.HasPrefix(s, "$")
}
