package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var orgID, snapshotID string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a snapshot can be restored",
		Long: `Download a snapshot's payload and check its checksum, structure and
ownership without changing anything. Exits non-zero when the snapshot is not
restorable.`,
		Example: `  vaultctl validate --org 7f0c... --snapshot 91ab...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.connect(ctx); err != nil {
				return err
			}

			validation, err := a.vault.Validator.ValidateForRestore(ctx, orgID, snapshotID)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), validation); err != nil {
				return err
			}
			if !validation.Success {
				return errors.New(validation.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "snapshot id")
	cmd.MarkFlagRequired("org")
	cmd.MarkFlagRequired("snapshot")

	return cmd
}
