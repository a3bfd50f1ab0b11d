package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openchat-labs/autoreply/pkg/autoreply/convo"
	"github.com/openchat-labs/autoreply/pkg/autoreply/engine"
	"github.com/openchat-labs/autoreply/pkg/autoreply/llm"
	"github.com/openchat-labs/autoreply/pkg/autoreply/rules"
	"github.com/openchat-labs/autoreply/pkg/autoreply/store"
	"github.com/openchat-labs/autoreply/pkg/autoreply/tools"
	"github.com/openchat-labs/autoreply/pkg/autoreply/transport"
	"github.com/openchat-labs/autoreply/pkg/autoreply/webhook"
)

// newServeCmd creates the `autoreply serve` command that starts the webhook
// server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long: `Start Autoreply as a service: an HTTP webhook receives inbound
messages and the engine replies per the configured rules.

Examples:
  autoreply serve
  autoreply serve --addr :9000
  autoreply serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)

	// Keyring → env → config, in that order.
	engine.ResolveAPIKey(cfg, logger)

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Webhook.Addr = addr
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ruleStore := store.NewRuleStore(db)
	userStore := store.NewUserStore(db)
	commerce := store.NewCommerceStore(db)
	messages := store.NewMessageLog(db)

	cache := rules.NewCache(ruleStore, time.Duration(cfg.Rules.CacheTTLMinutes)*time.Minute, logger)
	router := rules.NewRouter(cache, ruleStore, userStore, logger)
	memory := convo.NewStore(time.Duration(cfg.Memory.TTLMinutes)*time.Minute, logger)

	registry := tools.NewRegistry(logger)
	registry.Register(tools.NewOrderLookupTool(commerce, commerce))
	registry.Register(tools.NewAccountInfoTool(commerce))
	registry.Register(tools.NewProductSearchTool(commerce))
	registry.Register(tools.NewContentSearchTool(commerce))

	clientOpts := []llm.Option{}
	if cfg.LLM.MaxAttempts > 0 {
		clientOpts = append(clientOpts, llm.WithMaxAttempts(cfg.LLM.MaxAttempts))
	}
	if cfg.LLM.MaxDepth > 0 {
		clientOpts = append(clientOpts, llm.WithMaxDepth(cfg.LLM.MaxDepth))
	}
	if cfg.LLM.OverflowMessage != "" {
		clientOpts = append(clientOpts, llm.WithOverflowMessage(cfg.LLM.OverflowMessage))
	}
	client := llm.NewClient(cfg.API.BaseURL, cfg.API.APIKey, logger, clientOpts...)

	// Replies surface through the webhook response; the transport records
	// them and mints correlation tokens.
	tr := transport.NewMemory()

	eng := engine.New(cfg, cache, router, ruleStore, memory, registry, client, tr, messages, logger)
	server := webhook.NewServer(cfg.Webhook.Addr, eng, client, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	logger.Info("autoreply running, press Ctrl+C to stop",
		"name", cfg.Name,
		"model", cfg.Model,
		"addr", cfg.Webhook.Addr,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping...")
		cancel()
	case err := <-errCh:
		return err
	}

	select {
	case <-errCh:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// resolveConfig loads the config from the --config flag, a discovered file,
// or defaults.
func resolveConfig(cmd *cobra.Command) (*engine.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	if configPath != "" {
		cfg, err := engine.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	if found := engine.FindConfigFile(); found != "" {
		cfg, err := engine.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		slog.Info("config loaded", "path", found)
		return cfg, nil
	}

	return engine.DefaultConfig(), nil
}

// newLogger builds the slog logger per the config and --verbose flag.
func newLogger(cmd *cobra.Command, cfg *engine.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
