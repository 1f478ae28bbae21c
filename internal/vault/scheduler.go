package vault

import (
	"context"
	"fmt"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/agency/internal/model"
)

// Scheduled run outcomes.
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// ConfigRepository persists per-organization vault configuration.
type ConfigRepository interface {
	// Get returns the organization's configuration, creating it with
	// defaults on first read.
	Get(ctx context.Context, organizationID string) (*model.VaultConfig, error)
	Update(ctx context.Context, cfg *model.VaultConfig) error
	// ListScheduled returns every organization with scheduled backups
	// enabled together with the time of its latest snapshot.
	ListScheduled(ctx context.Context) ([]model.ScheduledOrganization, error)
}

// OrganizationResult is one organization's line in a scheduled run report.
type OrganizationResult struct {
	OrganizationID string `json:"organizationId"`
	Status         string `json:"status"`
	SnapshotID     string `json:"snapshotId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Report summarizes a scheduled run.
type Report struct {
	Processed int                  `json:"processed"`
	Skipped   int                  `json:"skipped"`
	Details   []OrganizationResult `json:"details"`
}

// Failed returns how many organizations failed.
func (r Report) Failed() int {
	n := 0
	for _, d := range r.Details {
		if d.Status == RunStatusFailed {
			n++
		}
	}
	return n
}

type snapshotCreator interface {
	CreateSystemSnapshot(ctx context.Context, organizationID string) (Result, error)
}

// Scheduler fans scheduled backups out to every due organization.
type Scheduler struct {
	configs      ConfigRepository
	orchestrator snapshotCreator
	clock        clock.Clock
	logger       zerolog.Logger
	concurrency  int
}

// NewScheduler creates a scheduler. Concurrency below 2 processes
// organizations one at a time.
func NewScheduler(configs ConfigRepository, orchestrator *Orchestrator, clk clock.Clock, logger zerolog.Logger, concurrency int) *Scheduler {
	return newScheduler(configs, orchestrator, clk, logger, concurrency)
}

func newScheduler(configs ConfigRepository, creator snapshotCreator, clk clock.Clock, logger zerolog.Logger, concurrency int) *Scheduler {
	return &Scheduler{
		configs:      configs,
		orchestrator: creator,
		clock:        clk,
		logger:       logger.With().Str("component", "vault-scheduler").Logger(),
		concurrency:  max(1, concurrency),
	}
}

// Run creates a system snapshot for every enabled organization whose
// latest snapshot is older than its frequency. One organization's failure
// never stops the others. The error is set only when the organizations
// could not be enumerated.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	orgs, err := s.configs.ListScheduled(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list scheduled organizations: %w", err)
	}

	now := s.clock.Now()
	due := make([]model.ScheduledOrganization, 0, len(orgs))
	for _, org := range orgs {
		if org.Due(now) {
			due = append(due, org)
		}
	}

	report := Report{
		Processed: len(due),
		Skipped:   len(orgs) - len(due),
		Details:   make([]OrganizationResult, len(due)),
	}

	s.logger.Info().
		Int("enabled", len(orgs)).
		Int("due", len(due)).
		Int("concurrency", s.concurrency).
		Msg("scheduled vault run started")

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, org := range due {
		g.Go(func() error {
			report.Details[i] = s.runOne(ctx, org.OrganizationID)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range report.Details {
		schedulerResultsTotal.WithLabelValues(d.Status).Inc()
	}

	s.logger.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed()).
		Msg("scheduled vault run finished")

	return report, nil
}

func (s *Scheduler) runOne(ctx context.Context, organizationID string) (res OrganizationResult) {
	res.OrganizationID = organizationID
	logger := s.logger.With().Str("organization_id", organizationID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("scheduled snapshot panicked")
			res = OrganizationResult{
				OrganizationID: organizationID,
				Status:         RunStatusFailed,
				Error:          fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status = RunStatusFailed
		res.Error = err.Error()
		return res
	}

	result, err := s.orchestrator.CreateSystemSnapshot(ctx, organizationID)
	switch {
	case err != nil:
		res.Status = RunStatusFailed
		res.Error = err.Error()
	case !result.Success:
		res.Status = RunStatusFailed
		res.SnapshotID = result.SnapshotID
		res.Error = result.Error
		if res.Error == "" {
			res.Error = "snapshot failed"
		}
	default:
		res.Status = RunStatusSuccess
		res.SnapshotID = result.SnapshotID
	}

	if res.Status == RunStatusFailed {
		logger.Warn().Str("error", res.Error).Msg("scheduled snapshot failed")
	}
	return res
}
