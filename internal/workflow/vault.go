package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/agency/internal/vault"
)

// ScheduledVaultBackupWorkflow runs one scheduled backup pass. The pass is
// attempted exactly once: organizations that fail are retried by the next
// scheduled run, not by Temporal.
func ScheduledVaultBackupWorkflow(ctx workflow.Context) (vault.Report, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var report vault.Report
	err := workflow.ExecuteActivity(ctx, "RunScheduledBackups").Get(ctx, &report)
	if err != nil {
		return vault.Report{}, err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("scheduled vault backups finished",
		"processed", report.Processed, "skipped", report.Skipped, "failed", report.Failed())
	for _, d := range report.Details {
		if d.Status == vault.RunStatusFailed {
			logger.Warn("scheduled snapshot failed", "organizationID", d.OrganizationID, "error", d.Error)
		}
	}

	return report, nil
}

// StaleSnapshotSweepWorkflow fails snapshots stuck in processing for longer
// than olderThan.
func StaleSnapshotSweepWorkflow(ctx workflow.Context, olderThan time.Duration) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var failed int
	err := workflow.ExecuteActivity(ctx, "FailStaleSnapshots", olderThan).Get(ctx, &failed)
	if err != nil {
		return err
	}

	if failed > 0 {
		workflow.GetLogger(ctx).Warn("failed stale snapshots", "count", failed, "olderThan", olderThan)
	}
	return nil
}

// CleanupAuditLogsWorkflow deletes vault audit entries older than the
// specified days.
func CleanupAuditLogsWorkflow(ctx workflow.Context, retentionDays int) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var deleted int64
	err := workflow.ExecuteActivity(ctx, "DeleteOldAuditLogs", retentionDays).Get(ctx, &deleted)
	if err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("cleaned up old audit logs", "deleted", deleted, "retentionDays", retentionDays)

	return nil
}
