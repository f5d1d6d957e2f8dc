package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default insurer policies",
		Long: `Insert (or refresh) the canonical insurer set. Existing insurers with
matching codes have their policy parameters replaced.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := store.SeedDefaultInsurers(ctx); err != nil {
		return err
	}

	slog.Info("Seeded default insurers")
	return nil
}
