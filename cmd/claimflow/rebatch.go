package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/clearhealth/claimflow/internal/costing"
	"github.com/clearhealth/claimflow/internal/engine"
	"github.com/clearhealth/claimflow/internal/notify"
	"github.com/clearhealth/claimflow/internal/service"
)

func rebatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebatch",
		Short: "Re-run batching for every pair with pending claims",
		Long: `Walk every insurer/provider pair that still has unbatched claims and run
the batch assignment engine for it. Useful after capacity changes, or to
sweep up claims whose batching job was lost.

Rebatch runs have no triggering claim, so no notifications are sent.`,
		RunE: runRebatch,
	}
}

func runRebatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	groups, err := store.PendingGroups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		cmd.Println("Nothing to rebatch.")
		return nil
	}

	calc := costing.NewCalculator(costing.FromConfig())
	eng := engine.New(store, calc, notify.LogNotifier{})

	bar := progressbar.Default(int64(len(groups)), "rebatching")
	failed := 0
	for _, group := range groups {
		if err := eng.Run(ctx, service.BatchJob{Group: group}); err != nil {
			// Keep sweeping; the failed pair stays pending.
			failed++
		}
		_ = bar.Add(1)
	}

	if failed > 0 {
		return fmt.Errorf("rebatch finished with %d of %d pairs failing", failed, len(groups))
	}
	cmd.Printf("Rebatched %d pair(s).\n", len(groups))
	return nil
}
