package main

import (
	"github.com/spf13/cobra"

	"github.com/edvin/agency/internal/datamodule"
	"github.com/edvin/agency/internal/vault"
)

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List registered data modules in restore order",
		Long: `List the data modules the vault exports, in dependency order. Module
definitions come from VAULT_MODULES_FILE when set, otherwise the built-in
defaults are used. A dependency cycle is reported as an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := vault.NewRegistry(a.logger)
			if err := datamodule.Register(registry, nil, a.cfg.VaultModulesFile, a.logger); err != nil {
				return err
			}
			sorted, err := registry.Sorted()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), vault.Describe(sorted))
		},
	}
}
