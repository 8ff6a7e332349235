package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"paypulse/internal/auth"
)

var (
	flagUser string
	flagTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development JWT for a user",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&flagUser, "user", "u", "", "User id for the sub claim")
	tokenCmd.Flags().DurationVar(&flagTTL, "ttl", 7*24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if flagUser == "" {
		return errors.New("--user is required")
	}
	if flagTTL <= 0 {
		return errors.New("--ttl must be positive")
	}
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	tok, err := auth.NewTokens(cfg.JWTSecret).Mint(flagUser, flagTTL)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
