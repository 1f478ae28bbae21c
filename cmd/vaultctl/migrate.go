package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/agency/internal/db"
)

func newMigrateCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending core database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = a.cfg.MigrationsDir
			}
			version, err := db.RunMigrations(cmd.Context(), a.cfg.CoreDatabaseURL, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "core database at version %d\n", version)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "migration files directory (default MIGRATIONS_DIR)")

	return cmd
}
