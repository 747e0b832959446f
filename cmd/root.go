// Package cmd defines and implements the CLI commands for the store service.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/config"
	"github.com/blinovmaxim/TgBotStore/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgbotstore",
		Short: "Catalog synchronization and publishing service for a Telegram store.",
		Long: `tgbotstore keeps a Telegram channel in sync with a supplier CSV feed.
It polls the feed for changes, maintains a price ledger to surface discounts,
publishes products on a schedule and removes posts for items that went out
of stock.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newParseCmd())

	return cmd
}

// loadEnvironment reads a .env file when present so local development mirrors
// the deployed environment-variable configuration.
func loadEnvironment() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env failed: %v\n", err)
	}
}

// setup loads the configuration and builds the root logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger init: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	loadEnvironment()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
