package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	mw "github.com/edvin/agency/internal/api/middleware"
	"github.com/edvin/agency/internal/api/request"
	"github.com/edvin/agency/internal/api/response"
	"github.com/edvin/agency/internal/model"
	"github.com/edvin/agency/internal/vault"
)

// SnapshotManager creates, lists and deletes snapshots.
type SnapshotManager interface {
	CreateSnapshot(ctx context.Context, actor vault.Actor, name string, includedModules []string) (vault.Result, error)
	ListSnapshots(ctx context.Context, actor vault.Actor) ([]model.Snapshot, error)
	DeleteSnapshot(ctx context.Context, actor vault.Actor, id string) error
}

type RestoreValidator interface {
	ValidateForRestore(ctx context.Context, organizationID, snapshotID string) (vault.Validation, error)
}

type SnapshotRestorer interface {
	Enabled() bool
	Restore(ctx context.Context, organizationID, snapshotID, confirmation string) error
}

type VaultConfigs interface {
	Get(ctx context.Context, organizationID string) (*model.VaultConfig, error)
	Update(ctx context.Context, organizationID string, enabled bool, frequency string) (*model.VaultConfig, error)
}

// ModuleCatalog lists registered data modules in dependency order.
type ModuleCatalog interface {
	Sorted() ([]vault.DataModule, error)
}

type Vault struct {
	snapshots SnapshotManager
	validator RestoreValidator
	restorer  SnapshotRestorer
	configs   VaultConfigs
	modules   ModuleCatalog
}

func NewVault(snapshots SnapshotManager, validator RestoreValidator, restorer SnapshotRestorer, configs VaultConfigs, modules ModuleCatalog) *Vault {
	return &Vault{
		snapshots: snapshots,
		validator: validator,
		restorer:  restorer,
		configs:   configs,
		modules:   modules,
	}
}

// ListSnapshots returns the organization's snapshots, newest first.
func (h *Vault) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	snapshots, err := h.snapshots.ListSnapshots(r.Context(), actor)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
}

// CreateSnapshot takes a manual snapshot. The body is optional.
func (h *Vault) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateSnapshot
	if err := request.DecodeOptional(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.snapshots.CreateSnapshot(r.Context(), actor, req.Name, req.IncludedModules)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	if !result.Success {
		zerolog.Ctx(r.Context()).Warn().
			Str("organization_id", actor.OrganizationID).
			Str("snapshot_id", result.SnapshotID).
			Str("error", result.Error).
			Msg("manual snapshot failed")
		response.WriteJSON(w, http.StatusInternalServerError, result)
		return
	}

	response.WriteJSON(w, http.StatusCreated, result)
}

func (h *Vault) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.snapshots.DeleteSnapshot(r.Context(), actor, id); err != nil {
		response.WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidateSnapshot reports whether a snapshot could be restored. A failed
// validation is a normal 200 answer with success=false.
func (h *Vault) ValidateSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	validation, err := h.validator.ValidateForRestore(r.Context(), actor.OrganizationID, id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, validation)
}

func (h *Vault) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.restorer.Enabled() {
		response.WriteServiceError(w, vault.ErrRestoreDisabled)
		return
	}
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RestoreSnapshot
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.restorer.Restore(r.Context(), actor.OrganizationID, id, req.Confirmation); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("organization_id", actor.OrganizationID).
			Str("snapshot_id", id).
			Msg("restore failed")
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "snapshot_id": id})
}

func (h *Vault) GetConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(r.Context(), actor.OrganizationID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Vault) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateVaultConfig
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.configs.Update(r.Context(), actor.OrganizationID, *req.Enabled, req.Frequency)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, cfg)
}

// ListModules returns registered data modules in restore order.
func (h *Vault) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.modules.Sorted()
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"modules": vault.Describe(modules)})
}

func actorFrom(w http.ResponseWriter, r *http.Request) (vault.Actor, bool) {
	p := mw.GetPrincipal(r.Context())
	if p == nil {
		response.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return vault.Actor{}, false
	}
	return vault.UserActor(p.OrganizationID, p.UserID), true
}
