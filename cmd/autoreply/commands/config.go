package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openchat-labs/autoreply/pkg/autoreply/engine"
)

// newConfigCmd creates the `autoreply config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration and credentials",
		Long: `Manage the Autoreply configuration.

Examples:
  autoreply config show
  autoreply config set-key
  autoreply config clear-key`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
		newConfigClearKeyCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			// Never print the credential itself.
			if cfg.API.APIKey != "" {
				cfg.API.APIKey = "********"
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the provider API key in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			apiKey, err := engine.ReadPassword("API key (hidden input): ")
			if err != nil {
				return err
			}
			if apiKey == "" {
				return fmt.Errorf("no key entered")
			}

			if err := engine.StoreKeyring("api_key", apiKey); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}
			fmt.Println("API key stored in the OS keyring.")
			return nil
		},
	}
}

func newConfigClearKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-key",
		Short: "Remove the provider API key from the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := engine.DeleteKeyring("api_key"); err != nil {
				return fmt.Errorf("removing key: %w", err)
			}
			fmt.Println("API key removed from the OS keyring.")
			return nil
		},
	}
}
