package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/agency/internal/bootstrap"
	"github.com/edvin/agency/internal/config"
	"github.com/edvin/agency/internal/db"
	"github.com/edvin/agency/internal/logging"
)

// app holds state shared by subcommands. The database and payload store
// are opened only by commands that need them.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	vault  *bootstrap.Vault
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "Operate the organization data vault",
		Long: `vaultctl runs vault maintenance outside the API server: listing registered
data modules, triggering the scheduled backup pass, failing stuck snapshots,
validating a snapshot before restore and migrating the core database.

Configuration is read from the same environment variables as the server.`,
		Example: `  vaultctl modules
  vaultctl run-scheduled
  vaultctl sweep --older-than 1h
  vaultctl validate --org 7f0c... --snapshot 91ab...
  vaultctl migrate
  vaultctl token --user u-1 --org 7f0c... --ttl 1h`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate("vaultctl"); err != nil {
				return err
			}
			if cfg.ServiceName == "" {
				cfg.ServiceName = "vaultctl"
			}
			a.cfg = cfg
			a.logger = logging.NewLogger(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.AddCommand(
		newModulesCmd(a),
		newRunScheduledCmd(a),
		newSweepCmd(a),
		newValidateCmd(a),
		newMigrateCmd(a),
		newTokenCmd(a),
	)

	return cmd
}

// connect opens the core database and the payload store and assembles the
// vault services.
func (a *app) connect(ctx context.Context) error {
	if a.vault != nil {
		return nil
	}
	if a.cfg.VaultBucket == "" {
		return fmt.Errorf("VAULT_BUCKET is required for this command")
	}

	pool, err := db.NewCorePool(ctx, a.cfg.CoreDatabaseURL, a.cfg.ServiceName)
	if err != nil {
		return err
	}
	objects, err := bootstrap.NewObjectStore(a.cfg, a.logger)
	if err != nil {
		pool.Close()
		return err
	}
	v, err := bootstrap.NewVault(a.cfg, pool, objects, clock.WallClock, a.logger)
	if err != nil {
		pool.Close()
		return err
	}

	a.pool = pool
	a.vault = v
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
