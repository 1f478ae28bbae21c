package vault

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/model"
)

// Validation failure reasons.
const (
	ReasonNotRestorable  = "not_restorable"
	ReasonPayloadMissing = "payload_missing"
	ReasonCorrupt        = "corrupt"
	ReasonUnavailable    = "unavailable"
)

// Validation is the go/no-go answer for restoring a snapshot.
type Validation struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Reason  string   `json:"reason,omitempty"`
	Modules []string `json:"modules,omitempty"`
}

// Validator checks that a snapshot can be restored without mutating
// anything.
type Validator struct {
	store  *Store
	logger zerolog.Logger
}

// NewValidator creates a restore validator.
func NewValidator(store *Store, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  store,
		logger: logger.With().Str("component", "vault-validator").Logger(),
	}
}

// ValidateForRestore loads the snapshot, downloads its payload and checks
// ownership and integrity. Unknown snapshots and snapshots of another
// organization return ErrInvalidSnapshot; a payload claiming a different
// organization returns ErrIntegrity.
func (v *Validator) ValidateForRestore(ctx context.Context, organizationID, snapshotID string) (Validation, error) {
	if organizationID == "" {
		return Validation{}, ErrMissingOrganization
	}
	_, payload, validation, err := v.load(ctx, organizationID, snapshotID)
	if err != nil || !validation.Success {
		return validation, err
	}

	keys := payload.ModuleKeys()
	slices.Sort(keys)
	return Validation{
		Success: true,
		Message: fmt.Sprintf("Snapshot is valid and ready for restore (%d modules)", len(keys)),
		Modules: keys,
	}, nil
}

// load returns the snapshot and its parsed payload. A non-success
// Validation with a nil error is a business-level rejection.
func (v *Validator) load(ctx context.Context, organizationID, snapshotID string) (*model.Snapshot, *Payload, Validation, error) {
	logger := v.logger.With().
		Str("organization_id", organizationID).
		Str("snapshot_id", snapshotID).
		Logger()

	snap, err := v.store.Get(ctx, organizationID, snapshotID)
	if err != nil {
		return nil, nil, Validation{}, err
	}
	if !snap.Restorable() {
		return snap, nil, Validation{
			Success: false,
			Reason:  ReasonNotRestorable,
			Message: "Snapshot is not restorable",
		}, nil
	}

	data, err := v.store.DownloadPayload(ctx, *snap.StoragePath)
	if err != nil {
		if errors.Is(err, ErrPayloadNotFound) {
			logger.Warn().Str("path", *snap.StoragePath).Msg("snapshot payload missing")
			return snap, nil, Validation{
				Success: false,
				Reason:  ReasonPayloadMissing,
				Message: "Snapshot file not found in vault",
			}, nil
		}
		logger.Error().Err(err).Msg("failed to download snapshot payload")
		return snap, nil, Validation{
			Success: false,
			Reason:  ReasonUnavailable,
			Message: "Snapshot file could not be read: " + err.Error(),
		}, nil
	}

	if snap.Checksum != nil && *snap.Checksum != "" && Checksum(data) != *snap.Checksum {
		logger.Error().Msg("snapshot payload checksum mismatch")
		return snap, nil, Validation{
			Success: false,
			Reason:  ReasonCorrupt,
			Message: "Snapshot file checksum does not match",
		}, nil
	}

	payload, err := ParsePayload(data)
	if err != nil {
		logger.Error().Err(err).Msg("snapshot payload corrupt")
		return snap, nil, Validation{
			Success: false,
			Reason:  ReasonCorrupt,
			Message: "Snapshot file is corrupt: " + err.Error(),
		}, nil
	}

	if payload.Meta.OrganizationID != organizationID {
		logger.Error().
			Str("payload_organization_id", payload.Meta.OrganizationID).
			Msg("snapshot payload belongs to another organization")
		return snap, nil, Validation{}, ErrIntegrity
	}

	return snap, payload, Validation{Success: true}, nil
}

// MaintenanceGate reports and flags organization state around a
// destructive restore.
type MaintenanceGate interface {
	InMaintenance(ctx context.Context, organizationID string) (bool, error)
	FlagInconsistent(ctx context.Context, organizationID, reason string) error
}

// Restorer replaces an organization's data with a snapshot's contents.
type Restorer struct {
	enabled   bool
	validator *Validator
	store     *Store
	registry  *Registry
	gate      MaintenanceGate
	logger    zerolog.Logger
}

// NewRestorer creates a restorer. When enabled is false every Restore call
// returns ErrRestoreDisabled.
func NewRestorer(enabled bool, validator *Validator, store *Store, registry *Registry, gate MaintenanceGate, logger zerolog.Logger) *Restorer {
	return &Restorer{
		enabled:   enabled,
		validator: validator,
		store:     store,
		registry:  registry,
		gate:      gate,
		logger:    logger.With().Str("component", "vault-restorer").Logger(),
	}
}

// Enabled reports whether destructive restore is switched on.
func (r *Restorer) Enabled() bool {
	return r.enabled
}

// Restore clears the modules present in the snapshot in reverse dependency
// order and imports them in dependency order. The confirmation must equal
// the snapshot id and the organization must be in maintenance mode. A
// failure after clearing has begun flags the organization inconsistent.
func (r *Restorer) Restore(ctx context.Context, organizationID, snapshotID, confirmation string) error {
	if !r.enabled {
		return ErrRestoreDisabled
	}
	if organizationID == "" {
		return ErrMissingOrganization
	}
	if confirmation != snapshotID {
		return ErrRestoreNotConfirmed
	}

	inMaintenance, err := r.gate.InMaintenance(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("check maintenance mode: %w", err)
	}
	if !inMaintenance {
		return ErrMaintenanceRequired
	}

	snap, payload, validation, err := r.validator.load(ctx, organizationID, snapshotID)
	if err != nil {
		return err
	}
	if !validation.Success {
		return fmt.Errorf("%w: %s", ErrNotRestorable, validation.Message)
	}

	sorted, err := r.registry.Sorted()
	if err != nil {
		return err
	}
	modules := make([]DataModule, 0, len(payload.Modules))
	for _, m := range sorted {
		if _, ok := payload.Modules[m.Key()]; ok {
			modules = append(modules, m)
		}
	}

	logger := r.logger.With().
		Str("organization_id", organizationID).
		Str("snapshot_id", snapshotID).
		Logger()

	if err := r.store.SetStatus(ctx, snap.ID, model.SnapshotRestoring); err != nil {
		return err
	}
	logger.Warn().Int("modules", len(modules)).Msg("destructive restore started")

	if err := r.apply(ctx, organizationID, modules, payload); err != nil {
		logger.Error().Err(err).Msg("restore failed")
		bg := context.WithoutCancel(ctx)
		if ferr := r.gate.FlagInconsistent(bg, organizationID, err.Error()); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to flag organization inconsistent")
		}
		if serr := r.store.SetStatus(bg, snap.ID, model.SnapshotCompleted); serr != nil {
			logger.Error().Err(serr).Msg("failed to reset snapshot status")
		}
		return fmt.Errorf("%w: %v", ErrInconsistentRestore, err)
	}

	if err := r.store.SetStatus(ctx, snap.ID, model.SnapshotCompleted); err != nil {
		return err
	}
	logger.Info().Msg("restore completed")
	return nil
}

func (r *Restorer) apply(ctx context.Context, organizationID string, modules []DataModule, payload *Payload) error {
	for i := len(modules) - 1; i >= 0; i-- {
		if err := modules[i].ClearData(ctx, organizationID); err != nil {
			return fmt.Errorf("clear module %s: %w", modules[i].Key(), err)
		}
	}
	for _, m := range modules {
		if err := m.ImportData(ctx, organizationID, payload.Modules[m.Key()]); err != nil {
			return fmt.Errorf("import module %s: %w", m.Key(), err)
		}
	}
	return nil
}
