// Package commands implements the autoreply CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autoreply",
		Short: "Autoreply - keyword-routed automated replies for customer chat",
		Long: `Autoreply routes inbound customer messages through keyword rules:
a rule either hands the conversation to a human or answers it with an
LLM that can look up orders, accounts, products, and content.

Examples:
  autoreply serve
  autoreply rules list
  autoreply config show
  autoreply health`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newRulesCmd(),
		newUsersCmd(),
		newConfigCmd(),
		newHealthCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
