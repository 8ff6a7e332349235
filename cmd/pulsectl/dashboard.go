package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"paypulse/internal/cache"
	"paypulse/internal/core"
	"paypulse/internal/services"
)

var flagAsOf string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print a user's dashboard summary as JSON",
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVarP(&flagUser, "user", "u", "", "User id")
	dashboardCmd.Flags().StringVar(&flagAsOf, "as-of", "", "Evaluate as of this day (YYYY-MM-DD), default today")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if flagUser == "" {
		return errors.New("--user is required")
	}
	day := core.Today()
	if flagAsOf != "" {
		d, err := core.ParseDate(flagAsOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		day = d
	}

	ctx := cmd.Context()
	cfg, res, logger, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	svc := services.NewDashboardService(res.Store, cache.Noop[core.DashboardSummary]{}, services.DashboardOptions{
		GoalsPreview:   cfg.DashboardGoalsPreview,
		RecentExpenses: cfg.DashboardRecentExpenses,
	}, logger)
	sum, err := svc.SummaryAt(ctx, flagUser, day)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
