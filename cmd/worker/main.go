package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/agency/internal/activity"
	"github.com/edvin/agency/internal/bootstrap"
	"github.com/edvin/agency/internal/config"
	"github.com/edvin/agency/internal/db"
	"github.com/edvin/agency/internal/logging"
	"github.com/edvin/agency/internal/metrics"
	"github.com/edvin/agency/internal/workflow"
)

const taskQueue = "vault-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL, "vault-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	objects, err := bootstrap.NewObjectStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure vault storage")
	}
	v, err := bootstrap.NewVault(cfg, corePool, objects, clock.WallClock, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build vault")
	}

	dialOpts, err := cfg.TemporalClientOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal client")
	}
	if dialOpts.ConnectionOptions.TLS != nil {
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{})

	// Register activities
	w.RegisterActivity(activity.NewVault(v.Scheduler, v.Orchestrator, logger))
	w.RegisterActivity(activity.NewCoreDB(corePool))

	// Register workflows
	w.RegisterWorkflow(workflow.ScheduledVaultBackupWorkflow)
	w.RegisterWorkflow(workflow.StaleSnapshotSweepWorkflow)
	w.RegisterWorkflow(workflow.CleanupAuditLogsWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, corePool.Ping)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, taskQueue, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func cronSchedules(cfg *config.Config) []cronSchedule {
	return []cronSchedule{
		{
			id:       "vault-scheduled-backup-cron",
			cron:     cfg.VaultBackupCron,
			workflow: workflow.ScheduledVaultBackupWorkflow,
		},
		{
			id:       "vault-stale-sweep-cron",
			cron:     cfg.VaultSweepCron,
			workflow: workflow.StaleSnapshotSweepWorkflow,
			args:     []interface{}{cfg.VaultStaleAfter},
		},
		{
			id:       "vault-audit-log-retention-cron",
			cron:     cfg.AuditLogCleanupCron,
			workflow: workflow.CleanupAuditLogsWorkflow,
			args:     []interface{}{cfg.AuditLogRetentionDays},
		},
	}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, taskQueue string, cfg *config.Config, logger zerolog.Logger) {
	scheduleClient := tc.ScheduleClient()

	for _, s := range cronSchedules(cfg) {
		if s.cron == "" {
			logger.Info().Str("id", s.id).Msg("cron schedule disabled")
			continue
		}
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if isAlreadyExists(err) {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}

func isAlreadyExists(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "AlreadyExists") || strings.Contains(msg, "already registered")
}
