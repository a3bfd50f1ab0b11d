package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchat-labs/autoreply/pkg/autoreply/store"
)

// newUsersCmd creates the `autoreply users` command group.
func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage chat user identity links",
		Long: `Manage the link between chat users and commerce customers.
A linked user can ask the bot about their own orders and account.

Examples:
  autoreply users link cust-1029 wa-5511999990000`,
	}

	cmd.AddCommand(newUsersLinkCmd())
	return cmd
}

func newUsersLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <customer-id> <channel-user-id>",
		Short: "Link a chat user to an existing customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			customerID, channelUserID := args[0], args[1]
			if err := store.NewCommerceStore(db).LinkChannelUser(ctx, customerID, channelUserID); err != nil {
				return err
			}

			fmt.Printf("Linked %s to customer %s.\n", channelUserID, customerID)
			return nil
		},
	}
}
