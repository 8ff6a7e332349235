package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paypulse/internal/backend"
	"paypulse/internal/cli"
	"paypulse/internal/config"
	"paypulse/internal/log"
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:           "pulsectl",
	Short:         "paypulse admin CLI",
	Long:          "Administer a paypulse deployment: migrate the database, mint tokens, inspect ledgers and render reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command named on the command line.
func Execute() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(cli.LoadEnvFile)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
}

// setup loads configuration and a logger that stays quiet unless --verbose.
func setup() (*config.Config, *log.Logger, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !flagVerbose {
		return cfg, log.Discard(), nil
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	return cfg, logger, nil
}

// openStore opens the configured backend; callers must run the cleanup.
func openStore(ctx context.Context) (*config.Config, *backend.BackendResult, *log.Logger, error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.DataBackend == config.BackendMemory {
		return nil, nil, nil, fmt.Errorf("the memory backend holds no data outside the server; set DATA_BACKEND")
	}
	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, res, logger, nil
}
