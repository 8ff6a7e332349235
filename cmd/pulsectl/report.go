package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paypulse/internal/core"
	"paypulse/internal/events"
	"paypulse/internal/report"
	"paypulse/internal/services"
)

var (
	flagMonth string
	flagOut   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a user's monthly report as PDF",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&flagUser, "user", "u", "", "User id")
	reportCmd.Flags().StringVarP(&flagMonth, "month", "m", "", "Month as YYYY-MM, default the current month")
	reportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file, default <REPORTS_DIR>/<user>/<month>.pdf")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if flagUser == "" {
		return errors.New("--user is required")
	}
	month := core.Today().MonthStart()
	if flagMonth != "" {
		m, err := core.ParseMonth(flagMonth)
		if err != nil {
			return fmt.Errorf("--month: %w", err)
		}
		month = m
	}

	ctx := cmd.Context()
	cfg, res, logger, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	r, err := services.NewLedgerService(res.Store, events.Noop{}, logger).MonthlyReport(ctx, flagUser, month)
	if err != nil {
		return err
	}

	path := flagOut
	if path == "" {
		path, err = report.NewStore(cfg.ReportsDir).Write(flagUser, r)
		if err != nil {
			return err
		}
	} else if err := writeFile(path, r); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d expenses, total %s %s -> %s\n",
		r.Month, len(r.Expenses), r.Total.StringFixed(), r.BaseCurrency, path)
	return nil
}

func writeFile(path string, r core.MonthlyReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.Render(f, r); err != nil {
		f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	return f.Close()
}
