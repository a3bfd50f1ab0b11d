package engine

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

// Secrets resolve through: OS keyring → environment (done by the loader) →
// config file value. The keyring entry wins because it is the only one
// encrypted at rest.
const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "autoreply"

	// keyringAPIKey is the key name for the LLM API key.
	keyringAPIKey = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// ResolveAPIKey resolves the API key using the priority chain and updates
// the config in place.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(keyringAPIKey); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from OS keyring")
		return
	}

	if cfg.API.APIKey != "" && !IsEnvReference(cfg.API.APIKey) {
		logger.Debug("API key loaded from config/env")
		return
	}

	logger.Warn("no API key found. Set one with: autoreply config set-key")
}

// MigrateKeyToKeyring moves an API key into the OS keyring.
func MigrateKeyToKeyring(apiKey string, logger *slog.Logger) error {
	if err := StoreKeyring(keyringAPIKey, apiKey); err != nil {
		return fmt.Errorf("storing in keyring: %w", err)
	}
	logger.Info("API key stored in OS keyring",
		"service", keyringService,
		"hint", "You can now remove it from .env and config.yaml")
	return nil
}
