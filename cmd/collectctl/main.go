// Package main provides collectctl, an operator CLI for supplier catalog
// collection.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/bootstrap"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/logger"
)

var rootCmd = &cobra.Command{
	Use:   "collectctl",
	Short: "Supplier catalog collection CLI",
	Long: `collectctl runs supplier catalog collections synchronously and inspects the job log.

Settings are read from config.yaml and ERP_* environment variables, like the API server.`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the CLI logger
func loadConfig() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// withCore runs fn against a freshly assembled pipeline and closes it
// afterwards
func withCore(ctx context.Context, cfg *config.Config, log *zap.Logger, fn func(*bootstrap.Core) error) error {
	core, err := bootstrap.NewCore(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Warn("Error closing connections", zap.Error(err))
		}
		_ = log.Sync()
	}()
	return fn(core)
}
