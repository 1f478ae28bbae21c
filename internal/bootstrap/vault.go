// Package bootstrap assembles the vault services shared by the API server,
// the Temporal worker and vaultctl.
package bootstrap

import (
	"fmt"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/config"
	"github.com/edvin/agency/internal/core"
	"github.com/edvin/agency/internal/datamodule"
	"github.com/edvin/agency/internal/objectstore"
	"github.com/edvin/agency/internal/vault"
)

// Vault is the assembled vault stack.
type Vault struct {
	Services     *core.Services
	Registry     *vault.Registry
	Store        *vault.Store
	Orchestrator *vault.Orchestrator
	Validator    *vault.Validator
	Restorer     *vault.Restorer
	Configs      *vault.ConfigService
	Scheduler    *vault.Scheduler
}

// NewObjectStore creates the S3 payload store from configuration.
func NewObjectStore(cfg *config.Config, logger zerolog.Logger) (*objectstore.S3, error) {
	store, err := objectstore.NewS3(objectstore.S3Config{
		Endpoint:  cfg.VaultS3Endpoint,
		Region:    cfg.VaultS3Region,
		Bucket:    cfg.VaultBucket,
		AccessKey: cfg.VaultAccessKey,
		SecretKey: cfg.VaultSecretKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create vault object store: %w", err)
	}
	return store, nil
}

// NewVault registers the data modules and wires the vault services on top
// of the core database and the payload store. When db can begin
// transactions, snapshot reservation also takes a PostgreSQL advisory lock
// so separate processes share the retention ceiling.
func NewVault(cfg *config.Config, db core.DB, objects vault.ObjectStore, clk clock.Clock, logger zerolog.Logger) (*Vault, error) {
	services := core.NewServices(db)

	registry := vault.NewRegistry(logger)
	if err := datamodule.Register(registry, db, cfg.VaultModulesFile, logger); err != nil {
		return nil, fmt.Errorf("register vault modules: %w", err)
	}

	store := vault.NewStore(services.Snapshot, objects, clk, logger)
	orchestrator := vault.NewOrchestrator(store, registry, clk, logger, cfg.VaultRetention)
	if tx, ok := db.(core.TxBeginner); ok {
		orchestrator.SetOrganizationLock(core.NewAdvisoryLock(tx))
	}
	validator := vault.NewValidator(store, logger)

	return &Vault{
		Services:     services,
		Registry:     registry,
		Store:        store,
		Orchestrator: orchestrator,
		Validator:    validator,
		Restorer:     vault.NewRestorer(cfg.VaultDestructiveRestore, validator, store, registry, services.Organization, logger),
		Configs:      vault.NewConfigService(services.VaultConfig, clk, logger),
		Scheduler:    vault.NewScheduler(services.VaultConfig, orchestrator, clk, logger, cfg.VaultSchedulerConcurrency),
	}, nil
}
