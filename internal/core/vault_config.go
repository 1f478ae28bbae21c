package core

import (
	"context"
	"fmt"

	"github.com/edvin/agency/internal/model"
)

// VaultConfigService stores per-organization vault configuration.
type VaultConfigService struct {
	db DB
}

func NewVaultConfigService(db DB) *VaultConfigService {
	return &VaultConfigService{db: db}
}

// Get returns the organization's configuration, inserting the defaults
// on first read.
func (s *VaultConfigService) Get(ctx context.Context, organizationID string) (*model.VaultConfig, error) {
	var cfg model.VaultConfig
	err := s.db.QueryRow(ctx,
		`INSERT INTO vault_configs (organization_id, enabled, frequency)
		 VALUES ($1, false, $2)
		 ON CONFLICT (organization_id) DO UPDATE SET organization_id = EXCLUDED.organization_id
		 RETURNING organization_id, enabled, frequency, updated_at`,
		organizationID, model.DefaultVaultFrequency,
	).Scan(&cfg.OrganizationID, &cfg.Enabled, &cfg.Frequency, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get vault config for organization %s: %w", organizationID, err)
	}
	return &cfg, nil
}

func (s *VaultConfigService) Update(ctx context.Context, cfg *model.VaultConfig) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO vault_configs (organization_id, enabled, frequency, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (organization_id) DO UPDATE SET enabled = EXCLUDED.enabled, frequency = EXCLUDED.frequency, updated_at = EXCLUDED.updated_at`,
		cfg.OrganizationID, cfg.Enabled, cfg.Frequency, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update vault config for organization %s: %w", cfg.OrganizationID, err)
	}
	return nil
}

// ListScheduled returns every organization with scheduled backups enabled
// and the creation time of its latest completed snapshot.
func (s *VaultConfigService) ListScheduled(ctx context.Context) ([]model.ScheduledOrganization, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.organization_id, c.frequency, MAX(v.created_at)
		 FROM vault_configs c
		 LEFT JOIN vault_snapshots v ON v.organization_id = c.organization_id AND v.status = $1
		 WHERE c.enabled
		 GROUP BY c.organization_id, c.frequency
		 ORDER BY c.organization_id`,
		model.SnapshotCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list scheduled organizations: %w", err)
	}
	defer rows.Close()

	var orgs []model.ScheduledOrganization
	for rows.Next() {
		var o model.ScheduledOrganization
		if err := rows.Scan(&o.OrganizationID, &o.Frequency, &o.LastSnapshotAt); err != nil {
			return nil, fmt.Errorf("scan scheduled organization: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduled organizations: %w", err)
	}
	return orgs, nil
}
