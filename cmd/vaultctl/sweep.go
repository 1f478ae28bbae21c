package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail snapshots stuck in processing",
		Long: `Mark snapshots that have been processing for longer than --older-than as
failed so they count toward retention and can be deleted. Defaults to
VAULT_STALE_AFTER.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = a.cfg.VaultStaleAfter
			}

			n, err := a.vault.Orchestrator.FailStale(ctx, olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "failed %d stale snapshot(s) older than %s\n", n, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "processing age after which a snapshot is failed (default VAULT_STALE_AFTER)")

	return cmd
}
