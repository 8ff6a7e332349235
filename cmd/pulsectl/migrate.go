package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"paypulse/internal/backend"
	"paypulse/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured backend",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if bcfg.Type == backend.MemoryBackend {
		fmt.Fprintln(cmd.OutOrStdout(), "memory backend: nothing to migrate")
		return nil
	}
	if err := backend.Migrate(bcfg); err != nil {
		return fmt.Errorf("migrate %s: %w", bcfg.Type, err)
	}
	logger.Info("Migrations applied", log.FieldBackend, bcfg.Type.String(), log.FieldOperation, log.OpMigrate)
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", bcfg.Type)
	return nil
}
