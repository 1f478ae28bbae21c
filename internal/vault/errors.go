package vault

import "errors"

var (
	// ErrMissingOrganization is returned when a call carries no organization scope.
	ErrMissingOrganization = errors.New("missing organization context")

	// ErrInvalidSnapshot covers both a missing snapshot and one owned by
	// another organization, so callers cannot learn about other tenants' snapshots.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrPayloadNotFound means the snapshot row exists but its object does not.
	ErrPayloadNotFound = errors.New("snapshot file not found in vault")

	// ErrObjectNotFound is returned by ObjectStore implementations.
	ErrObjectNotFound = errors.New("object not found")

	// ErrIntegrity means the payload does not belong to the organization
	// that owns the snapshot row.
	ErrIntegrity = errors.New("snapshot integrity check failed")

	ErrInvalidFrequency = errors.New("invalid backup frequency")

	// ErrNoModulesSelected means none of the requested module keys is
	// registered.
	ErrNoModulesSelected = errors.New("none of the requested modules is registered")

	ErrRestoreDisabled     = errors.New("destructive restore is disabled")
	ErrRestoreNotConfirmed = errors.New("restore confirmation does not match snapshot")
	ErrMaintenanceRequired = errors.New("organization must be in maintenance mode to restore")
	ErrNotRestorable       = errors.New("snapshot is not restorable")
	ErrInconsistentRestore = errors.New("restore failed part-way; organization flagged inconsistent")
)
