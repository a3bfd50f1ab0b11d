package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchat-labs/autoreply/pkg/autoreply/engine"
	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
)

// newHealthCmd creates the `autoreply health` command. Used by Docker
// HEALTHCHECK and monitoring.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check provider connectivity and credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg)
			engine.ResolveAPIKey(cfg, logger)

			client := llm.NewClient(cfg.API.BaseURL, cfg.API.APIKey, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := client.VerifyCredential(ctx); err != nil {
				if errors.Is(err, llm.ErrNoCredential) {
					fmt.Println(`{"status":"degraded","reason":"credential missing or rejected"}`)
				} else {
					fmt.Println(`{"status":"degraded","reason":"provider unavailable"}`)
				}
				return err
			}

			fmt.Println(`{"status":"ok"}`)
			return nil
		},
	}
}
