package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchat-labs/autoreply/pkg/autoreply/store"
)

// newRulesCmd creates the `autoreply rules` command group.
func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the configured reply rules",
		Long: `Inspect the keyword rules the engine routes messages with.

Examples:
  autoreply rules list`,
	}

	cmd.AddCommand(newRulesListCmd())
	return cmd
}

func newRulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active rules in priority order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			db, err := store.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			active, err := store.NewRuleStore(db).ActiveRules(ctx)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}
			if len(active) == 0 {
				fmt.Println("No active rules.")
				return nil
			}

			for _, r := range active {
				fmt.Printf("%s  [%s] priority=%d  mode=%s\n", r.ID, r.Name, r.Priority, r.Mode)
				fmt.Printf("    keywords: %s\n", strings.Join(r.Keywords, ", "))
				fmt.Printf("    triggers: %d  tokens: %d  avg response: %.0fms\n",
					r.TriggerCount, r.TotalTokens, r.AvgResponseMillis)
			}
			return nil
		},
	}
}
