package vault

import "github.com/edvin/agency/internal/model"

// Actor is on whose behalf a vault operation runs. A nil UserID is the
// system actor used by the scheduler.
type Actor struct {
	OrganizationID string
	UserID         *string
}

// UserActor returns an actor for an authenticated member of an organization.
func UserActor(organizationID, userID string) Actor {
	return Actor{OrganizationID: organizationID, UserID: &userID}
}

// SystemActor returns the actor used for scheduled, request-less work.
func SystemActor(organizationID string) Actor {
	return Actor{OrganizationID: organizationID}
}

// IsSystem reports whether the actor is the system actor.
func (a Actor) IsSystem() bool {
	return a.UserID == nil
}

func (a Actor) source() string {
	if a.IsSystem() {
		return model.SnapshotSourceScheduled
	}
	return model.SnapshotSourceManual
}
