package core

import (
	"context"
	"fmt"

	"github.com/edvin/agency/internal/model"
)

// OrganizationService answers the membership and maintenance questions the
// vault asks about organizations.
type OrganizationService struct {
	db DB
}

func NewOrganizationService(db DB) *OrganizationService {
	return &OrganizationService{db: db}
}

func (s *OrganizationService) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var o model.Organization
	err := s.db.QueryRow(ctx,
		`SELECT id, name, maintenance_mode, inconsistent_at, created_at, updated_at FROM organizations WHERE id = $1`, id,
	).Scan(&o.ID, &o.Name, &o.MaintenanceMode, &o.InconsistentAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "get organization %s", id)
	}
	return &o, nil
}

// IsMember reports whether the user belongs to the organization.
func (s *OrganizationService) IsMember(ctx context.Context, organizationID, userID string) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)`,
		organizationID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check membership of %s in %s: %w", userID, organizationID, err)
	}
	return ok, nil
}

func (s *OrganizationService) InMaintenance(ctx context.Context, organizationID string) (bool, error) {
	var on bool
	err := s.db.QueryRow(ctx,
		`SELECT maintenance_mode FROM organizations WHERE id = $1`, organizationID,
	).Scan(&on)
	if err != nil {
		return false, notFound(err, "get maintenance mode of organization %s", organizationID)
	}
	return on, nil
}

func (s *OrganizationService) SetMaintenance(ctx context.Context, organizationID string, on bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE organizations SET maintenance_mode = $1, updated_at = now() WHERE id = $2`,
		on, organizationID,
	)
	if err != nil {
		return fmt.Errorf("set maintenance mode of organization %s: %w", organizationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set maintenance mode of organization %s: %w", organizationID, model.ErrNotFound)
	}
	return nil
}

// FlagInconsistent records that a restore left the organization's data
// partially replaced.
func (s *OrganizationService) FlagInconsistent(ctx context.Context, organizationID, reason string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE organizations SET inconsistent_at = now(), inconsistent_reason = $1, updated_at = now() WHERE id = $2`,
		reason, organizationID,
	)
	if err != nil {
		return fmt.Errorf("flag organization %s inconsistent: %w", organizationID, err)
	}
	return nil
}
