package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/vault"
)

// BackupRunner runs one scheduled backup pass.
type BackupRunner interface {
	Run(ctx context.Context) (vault.Report, error)
}

// StaleSweeper fails snapshots stuck in processing.
type StaleSweeper interface {
	FailStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Vault contains the scheduled vault activities.
type Vault struct {
	runner  BackupRunner
	sweeper StaleSweeper
	logger  zerolog.Logger
}

func NewVault(runner BackupRunner, sweeper StaleSweeper, logger zerolog.Logger) *Vault {
	return &Vault{
		runner:  runner,
		sweeper: sweeper,
		logger:  logger.With().Str("component", "vault-activity").Logger(),
	}
}

// RunScheduledBackups snapshots every organization that is due. Failures of
// individual organizations are part of the report, not an error.
func (a *Vault) RunScheduledBackups(ctx context.Context) (vault.Report, error) {
	report, err := a.runner.Run(ctx)
	if err != nil {
		return vault.Report{}, fmt.Errorf("run scheduled backups: %w", err)
	}
	a.logger.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Msg("scheduled backup pass finished")
	return report, nil
}

// FailStaleSnapshots marks snapshots stuck in processing for longer than
// olderThan as failed and returns how many were touched.
func (a *Vault) FailStaleSnapshots(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := a.sweeper.FailStale(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("fail stale snapshots: %w", err)
	}
	return n, nil
}
