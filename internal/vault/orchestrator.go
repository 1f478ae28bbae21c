package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/model"
)

// DefaultRetention is the number of snapshots kept per organization.
const DefaultRetention = 5

// Result is the outcome of a snapshot creation. Business failures are
// reported here rather than as errors so one organization's failure never
// aborts its siblings.
type Result struct {
	Success    bool   `json:"success"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OrganizationLock serializes snapshot reservation for one organization
// across processes. The returned func releases the lock.
type OrganizationLock interface {
	Lock(ctx context.Context, organizationID string) (func(), error)
}

// Orchestrator creates and deletes snapshots.
type Orchestrator struct {
	store     *Store
	registry  *Registry
	clock     clock.Clock
	logger    zerolog.Logger
	locks     *kmutex.Kmutex
	orgLock   OrganizationLock
	retention int
}

// NewOrchestrator creates an orchestrator keeping at most retention
// snapshots per organization. A non-positive retention uses DefaultRetention.
func NewOrchestrator(store *Store, registry *Registry, clk clock.Clock, logger zerolog.Logger, retention int) *Orchestrator {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Orchestrator{
		store:     store,
		registry:  registry,
		clock:     clk,
		logger:    logger.With().Str("component", "vault-orchestrator").Logger(),
		locks:     kmutex.New(),
		retention: retention,
	}
}

// CreateSnapshot rotates old snapshots, exports the requested modules (all
// registered modules when includedModules is empty), uploads the payload
// and finalizes the row. Unregistered keys are dropped before the row is
// written. The returned error is only set for calls without an
// organization scope and for requests naming no registered module.
func (o *Orchestrator) CreateSnapshot(ctx context.Context, actor Actor, name string, includedModules []string) (Result, error) {
	if actor.OrganizationID == "" {
		return Result{}, ErrMissingOrganization
	}

	start := o.clock.Now()
	source := actor.source()
	if name == "" {
		name = defaultSnapshotName(actor, start)
	}

	logger := o.logger.With().
		Str("organization_id", actor.OrganizationID).
		Str("source", source).
		Logger()

	requested := dedupe(includedModules)
	modules, included := o.resolveModules(requested, logger)
	if len(requested) > 0 && len(modules) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoModulesSelected, strings.Join(requested, ", "))
	}

	snap, err := o.reserve(ctx, actor, name, source, included)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reserve snapshot")
		snapshotsTotal.WithLabelValues(source, model.SnapshotFailed).Inc()
		return Result{Success: false, Error: err.Error()}, nil
	}
	logger = logger.With().Str("snapshot_id", snap.ID).Logger()

	data, err := o.export(ctx, snap, modules, source, logger)
	if err != nil {
		return o.fail(ctx, snap, source, logger, err), nil
	}

	path, err := o.store.Upload(ctx, snap.OrganizationID, snap.ID, data)
	if err != nil {
		return o.fail(ctx, snap, source, logger, err), nil
	}

	if err := o.store.FinalizeSuccess(ctx, snap.ID, path, int64(len(data)), Checksum(data)); err != nil {
		// The row never reached completed, so the object must not outlive it.
		if derr := o.store.objects.Delete(context.WithoutCancel(ctx), path); derr != nil {
			logger.Warn().Err(derr).Str("path", path).Msg("failed to remove orphaned payload")
		}
		return o.fail(ctx, snap, source, logger, err), nil
	}

	snapshotsTotal.WithLabelValues(source, model.SnapshotCompleted).Inc()
	snapshotBytes.Observe(float64(len(data)))
	snapshotDuration.WithLabelValues(source).Observe(o.clock.Now().Sub(start).Seconds())
	logger.Info().Int("size_bytes", len(data)).Msg("snapshot completed")

	return Result{Success: true, SnapshotID: snap.ID}, nil
}

// CreateSystemSnapshot creates an automatically named snapshot of every
// registered module on behalf of the system actor.
func (o *Orchestrator) CreateSystemSnapshot(ctx context.Context, organizationID string) (Result, error) {
	return o.CreateSnapshot(ctx, SystemActor(organizationID), "", nil)
}

// ListSnapshots returns the actor's organization snapshots, newest first.
func (o *Orchestrator) ListSnapshots(ctx context.Context, actor Actor) ([]model.Snapshot, error) {
	if actor.OrganizationID == "" {
		return nil, ErrMissingOrganization
	}
	return o.store.List(ctx, actor.OrganizationID)
}

// DeleteSnapshot removes a snapshot and its payload after verifying it
// belongs to the actor's organization.
func (o *Orchestrator) DeleteSnapshot(ctx context.Context, actor Actor, id string) error {
	if actor.OrganizationID == "" {
		return ErrMissingOrganization
	}
	if err := o.store.DeleteWithPayload(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	o.logger.Info().
		Str("organization_id", actor.OrganizationID).
		Str("snapshot_id", id).
		Msg("snapshot deleted")
	return nil
}

// FailStale marks snapshots that have been processing for longer than
// olderThan as failed and returns how many were changed.
func (o *Orchestrator) FailStale(ctx context.Context, olderThan time.Duration) (int, error) {
	before := o.clock.Now().Add(-olderThan).UTC()
	msg := fmt.Sprintf("snapshot did not finish within %s", olderThan)
	ids, err := o.store.failProcessingBefore(ctx, before, msg)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		o.logger.Warn().Str("snapshot_id", id).Msg("failed stale processing snapshot")
	}
	staleSnapshotsTotal.Add(float64(len(ids)))
	return len(ids), nil
}

// SetOrganizationLock adds a lock shared with other processes around
// rotation and insert. Without one, reservations are only serialized
// within this process.
func (o *Orchestrator) SetOrganizationLock(l OrganizationLock) {
	o.orgLock = l
}

// reserve applies the retention policy and inserts the processing row.
// Both steps hold the organization's lock so concurrent creations cannot
// overshoot the ceiling.
func (o *Orchestrator) reserve(ctx context.Context, actor Actor, name, source string, includedModules []string) (*model.Snapshot, error) {
	o.locks.Lock(actor.OrganizationID)
	defer o.locks.Unlock(actor.OrganizationID)

	if o.orgLock != nil {
		unlock, err := o.orgLock.Lock(ctx, actor.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("lock organization: %w", err)
		}
		defer unlock()
	}

	if err := o.rotate(ctx, actor.OrganizationID); err != nil {
		return nil, fmt.Errorf("rotate snapshots: %w", err)
	}
	return o.store.Insert(ctx, actor.OrganizationID, name, source, includedModules, actor.UserID)
}

// rotate deletes the oldest snapshots until there is room for one more.
// Snapshots being restored are never rotated out.
func (o *Orchestrator) rotate(ctx context.Context, organizationID string) error {
	count, err := o.store.count(ctx, organizationID)
	if err != nil {
		return err
	}
	for ; count >= o.retention; count-- {
		oldest, err := o.store.oldest(ctx, organizationID)
		if err != nil {
			return err
		}
		if err := o.store.DeleteWithPayload(ctx, organizationID, oldest.ID); err != nil {
			return err
		}
		rotationsTotal.Inc()
		o.logger.Info().
			Str("organization_id", organizationID).
			Str("snapshot_id", oldest.ID).
			Time("created_at", oldest.CreatedAt).
			Msg("rotated out oldest snapshot")
	}
	return nil
}

// export runs each module's export and encodes the envelope. Any module
// failure fails the whole snapshot.
func (o *Orchestrator) export(ctx context.Context, snap *model.Snapshot, modules []DataModule, source string, logger zerolog.Logger) ([]byte, error) {
	payload := &Payload{
		Meta: PayloadMeta{
			Version:        PayloadVersion,
			OrganizationID: snap.OrganizationID,
			Timestamp:      o.clock.Now().UTC(),
			SnapshotID:     snap.ID,
			Source:         source,
		},
		Modules: make(map[string]json.RawMessage, len(modules)),
	}

	for _, m := range modules {
		fragment, err := exportModule(ctx, m, snap.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("export module %s: %w", m.Key(), err)
		}
		if !json.Valid(fragment) {
			return nil, fmt.Errorf("export module %s: result is not valid JSON", m.Key())
		}
		payload.Modules[m.Key()] = fragment
		logger.Debug().Str("module", m.Key()).Int("bytes", len(fragment)).Msg("module exported")
	}

	return payload.Encode()
}

// resolveModules looks up the requested keys and returns the modules found
// with their keys in request order. An empty request selects every
// registered module and records no keys.
func (o *Orchestrator) resolveModules(keys []string, logger zerolog.Logger) ([]DataModule, []string) {
	if len(keys) == 0 {
		return o.registry.All(), nil
	}
	modules := make([]DataModule, 0, len(keys))
	resolved := make([]string, 0, len(keys))
	for _, key := range keys {
		m, ok := o.registry.Get(key)
		if !ok {
			logger.Warn().Str("module", key).Msg("module not registered, skipping")
			continue
		}
		modules = append(modules, m)
		resolved = append(resolved, key)
	}
	return modules, resolved
}

func (o *Orchestrator) fail(ctx context.Context, snap *model.Snapshot, source string, logger zerolog.Logger, err error) Result {
	logger.Error().Err(err).Msg("snapshot failed")
	if ferr := o.store.FinalizeFailure(context.WithoutCancel(ctx), snap.ID, err.Error()); ferr != nil {
		logger.Error().Err(ferr).Msg("failed to mark snapshot failed")
	}
	snapshotsTotal.WithLabelValues(source, model.SnapshotFailed).Inc()
	return Result{Success: false, SnapshotID: snap.ID, Error: err.Error()}
}

// exportModule calls ExportData, turning a panic into an error.
func exportModule(ctx context.Context, m DataModule, organizationID string) (fragment json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.ExportData(ctx, organizationID)
}

func defaultSnapshotName(actor Actor, now time.Time) string {
	if actor.IsSystem() {
		return "Auto-Backup: " + now.UTC().Format(time.RFC3339)
	}
	return "Backup " + now.UTC().Format("2006-01-02")
}

func dedupe(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
