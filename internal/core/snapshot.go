package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/agency/internal/model"
)

const snapshotColumns = `id, organization_id, name, status, status_message, source, storage_path, file_size_bytes, checksum, included_modules, created_by, created_at, completed_at, updated_at`

// SnapshotService stores vault snapshot metadata.
type SnapshotService struct {
	db DB
}

func NewSnapshotService(db DB) *SnapshotService {
	return &SnapshotService{db: db}
}

func scanSnapshot(row interface{ Scan(dest ...any) error }, s *model.Snapshot) error {
	return row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Status, &s.StatusMessage, &s.Source,
		&s.StoragePath, &s.FileSizeBytes, &s.Checksum, &s.IncludedModules, &s.CreatedBy,
		&s.CreatedAt, &s.CompletedAt, &s.UpdatedAt)
}

func (s *SnapshotService) ListByOrganization(ctx context.Context, organizationID string) ([]model.Snapshot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+snapshotColumns+` FROM vault_snapshots WHERE organization_id = $1 ORDER BY created_at DESC, id DESC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for organization %s: %w", organizationID, err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := scanSnapshot(rows, &snap); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

func (s *SnapshotService) GetByID(ctx context.Context, id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := scanSnapshot(s.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM vault_snapshots WHERE id = $1`, id,
	), &snap)
	if err != nil {
		return nil, notFound(err, "get snapshot %s", id)
	}
	return &snap, nil
}

func (s *SnapshotService) Create(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO vault_snapshots (id, organization_id, name, status, source, included_modules, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.ID, snap.OrganizationID, snap.Name, snap.Status, snap.Source,
		snap.IncludedModules, snap.CreatedBy, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotService) MarkCompleted(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vault_snapshots
		 SET status = $1, status_message = NULL, storage_path = $2, file_size_bytes = $3, checksum = $4, completed_at = $5, updated_at = $5
		 WHERE id = $6`,
		model.SnapshotCompleted, storagePath, sizeBytes, checksum, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("complete snapshot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete snapshot %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *SnapshotService) MarkFailed(ctx context.Context, id, message string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vault_snapshots SET status = $1, status_message = $2, storage_path = NULL, updated_at = now() WHERE id = $3`,
		model.SnapshotFailed, message, id,
	)
	if err != nil {
		return fmt.Errorf("fail snapshot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail snapshot %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *SnapshotService) SetStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE vault_snapshots SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set snapshot %s status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set snapshot %s status: %w", id, model.ErrNotFound)
	}
	return nil
}

func (s *SnapshotService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM vault_snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

func (s *SnapshotService) CountByOrganization(ctx context.Context, organizationID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vault_snapshots WHERE organization_id = $1`, organizationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count snapshots for organization %s: %w", organizationID, err)
	}
	return n, nil
}

// OldestByOrganization returns the oldest snapshot that may be rotated out.
// Snapshots being restored are excluded.
func (s *SnapshotService) OldestByOrganization(ctx context.Context, organizationID string) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := scanSnapshot(s.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM vault_snapshots WHERE organization_id = $1 AND status <> $2 ORDER BY created_at ASC, id ASC LIMIT 1`,
		organizationID, model.SnapshotRestoring,
	), &snap)
	if err != nil {
		return nil, notFound(err, "get oldest snapshot for organization %s", organizationID)
	}
	return &snap, nil
}

// FailProcessingBefore marks every snapshot still processing since before
// the cutoff as failed and returns their ids.
func (s *SnapshotService) FailProcessingBefore(ctx context.Context, before time.Time, message string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE vault_snapshots SET status = $1, status_message = $2, updated_at = now()
		 WHERE status = $3 AND created_at < $4
		 RETURNING id`,
		model.SnapshotFailed, message, model.SnapshotProcessing, before,
	)
	if err != nil {
		return nil, fmt.Errorf("fail processing snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot ids: %w", err)
	}
	return ids, nil
}
