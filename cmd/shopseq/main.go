package main

import (
	"context"
	"fmt"
	"os"

	"shopseq/internal/config"
	"shopseq/internal/container"
	"shopseq/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "shopseq",
	Short:         "Per-tenant identifier allocation for the workshop backend",
	Long:          "Allocates sequential job, part, purchase and quotation numbers and opaque job tokens.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd, allocateCmd, tokenCmd, benchCmd, serveCmd)
}

// loadConfig reads the env file (if present) and the environment
func loadConfig(ctx context.Context) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return cfg, nil
}

// bootstrap loads configuration and wires the application against the configured store
func bootstrap(ctx context.Context) (*container.Container, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return container.Bootstrap(ctx, cfg)
}
