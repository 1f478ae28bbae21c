package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/model"
	"github.com/edvin/agency/internal/platform"
)

// SnapshotRepository persists snapshot metadata rows.
// Lookups of a missing row must wrap model.ErrNotFound.
type SnapshotRepository interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]model.Snapshot, error)
	GetByID(ctx context.Context, id string) (*model.Snapshot, error)
	Create(ctx context.Context, snap *model.Snapshot) error
	MarkCompleted(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	CountByOrganization(ctx context.Context, organizationID string) (int, error)
	// OldestByOrganization skips snapshots in the restoring state.
	OldestByOrganization(ctx context.Context, organizationID string) (*model.Snapshot, error)
	FailProcessingBefore(ctx context.Context, before time.Time, message string) ([]string, error)
}

// ObjectStore holds serialized payloads. Get and Delete of a missing key
// must return an error wrapping ErrObjectNotFound.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Store combines snapshot metadata and payload objects, scoped by
// organization.
type Store struct {
	snapshots SnapshotRepository
	objects   ObjectStore
	clock     clock.Clock
	logger    zerolog.Logger
}

// NewStore creates a snapshot store.
func NewStore(snapshots SnapshotRepository, objects ObjectStore, clk clock.Clock, logger zerolog.Logger) *Store {
	return &Store{
		snapshots: snapshots,
		objects:   objects,
		clock:     clk,
		logger:    logger.With().Str("component", "vault-store").Logger(),
	}
}

// List returns the organization's snapshots, newest first.
func (s *Store) List(ctx context.Context, organizationID string) ([]model.Snapshot, error) {
	snaps, err := s.snapshots.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Get returns a snapshot owned by the organization. A missing snapshot and
// one owned by someone else both yield ErrInvalidSnapshot.
func (s *Store) Get(ctx context.Context, organizationID, id string) (*model.Snapshot, error) {
	snap, err := s.snapshots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidSnapshot
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if snap.OrganizationID != organizationID {
		s.logger.Warn().
			Str("snapshot_id", id).
			Str("organization_id", organizationID).
			Msg("snapshot access across organizations denied")
		return nil, ErrInvalidSnapshot
	}
	return snap, nil
}

// Insert creates a new snapshot row in the processing state.
func (s *Store) Insert(ctx context.Context, organizationID, name, source string, includedModules []string, createdBy *string) (*model.Snapshot, error) {
	if includedModules == nil {
		includedModules = []string{}
	}
	now := s.clock.Now().UTC()
	snap := &model.Snapshot{
		ID:              platform.NewID(),
		OrganizationID:  organizationID,
		Name:            name,
		Status:          model.SnapshotProcessing,
		Source:          source,
		IncludedModules: includedModules,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.snapshots.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// Upload writes a payload to its deterministic path, replacing any
// previous object, and returns the path.
func (s *Store) Upload(ctx context.Context, organizationID, snapshotID string, data []byte) (string, error) {
	path := StoragePath(organizationID, snapshotID)
	if err := s.objects.Put(ctx, path, data, PayloadContentType); err != nil {
		return "", fmt.Errorf("upload payload %s: %w", path, err)
	}
	return path, nil
}

// FinalizeSuccess marks a snapshot completed.
func (s *Store) FinalizeSuccess(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string) error {
	if err := s.snapshots.MarkCompleted(ctx, id, storagePath, sizeBytes, checksum, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("finalize snapshot %s: %w", id, err)
	}
	return nil
}

// FinalizeFailure marks a snapshot failed. Failed is terminal.
func (s *Store) FinalizeFailure(ctx context.Context, id, reason string) error {
	if err := s.snapshots.MarkFailed(ctx, id, reason); err != nil {
		return fmt.Errorf("mark snapshot %s failed: %w", id, err)
	}
	return nil
}

// SetStatus moves a snapshot to a non-terminal status such as restoring.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	if err := s.snapshots.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set snapshot %s status %s: %w", id, status, err)
	}
	return nil
}

// DeleteWithPayload removes a snapshot's object and then its row, after
// checking the snapshot belongs to the organization. A snapshot without a
// payload, or whose object is already gone, is still deleted.
func (s *Store) DeleteWithPayload(ctx context.Context, organizationID, id string) error {
	snap, err := s.Get(ctx, organizationID, id)
	if err != nil {
		return err
	}

	if snap.StoragePath != nil && *snap.StoragePath != "" {
		err := s.objects.Delete(ctx, *snap.StoragePath)
		switch {
		case err == nil:
		case errors.Is(err, ErrObjectNotFound):
			s.logger.Warn().Str("snapshot_id", id).Str("path", *snap.StoragePath).Msg("payload already missing, deleting row")
		default:
			return fmt.Errorf("delete payload %s: %w", *snap.StoragePath, err)
		}
	}

	if err := s.snapshots.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

// DownloadPayload reads a stored payload. A missing object yields
// ErrPayloadNotFound.
func (s *Store) DownloadPayload(ctx context.Context, storagePath string) ([]byte, error) {
	data, err := s.objects.Get(ctx, storagePath)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, ErrPayloadNotFound
		}
		return nil, fmt.Errorf("download payload %s: %w", storagePath, err)
	}
	return data, nil
}

// count and oldest back the rotation policy.
func (s *Store) count(ctx context.Context, organizationID string) (int, error) {
	n, err := s.snapshots.CountByOrganization(ctx, organizationID)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

func (s *Store) oldest(ctx context.Context, organizationID string) (*model.Snapshot, error) {
	snap, err := s.snapshots.OldestByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("find oldest snapshot: %w", err)
	}
	return snap, nil
}

func (s *Store) failProcessingBefore(ctx context.Context, before time.Time, message string) ([]string, error) {
	ids, err := s.snapshots.FailProcessingBefore(ctx, before, message)
	if err != nil {
		return nil, fmt.Errorf("fail stale snapshots: %w", err)
	}
	return ids, nil
}
