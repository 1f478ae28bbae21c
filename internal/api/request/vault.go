package request

import (
	"fmt"
	"strings"
)

const maxSnapshotNameLength = 120

type CreateSnapshot struct {
	Name            string   `json:"name"`
	IncludedModules []string `json:"included_modules" validate:"omitempty,dive,slug"`
}

// Validate trims the name and checks its length in characters.
func (r *CreateSnapshot) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if err := validate.Var(r.Name, fmt.Sprintf("max=%d", maxSnapshotNameLength)); err != nil {
		return fmt.Errorf("name too long: max %d characters", maxSnapshotNameLength)
	}
	return nil
}

// RestoreSnapshot must repeat the snapshot id as confirmation.
type RestoreSnapshot struct {
	Confirmation string `json:"confirmation" validate:"required"`
}

type UpdateVaultConfig struct {
	Enabled   *bool  `json:"enabled" validate:"required"`
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
}
