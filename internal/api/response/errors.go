package response

import (
	"errors"
	"net/http"

	"github.com/edvin/agency/internal/model"
	"github.com/edvin/agency/internal/vault"
)

// WriteServiceError maps a service-layer error to an HTTP status. Errors
// that are not recognised are reported as 500 without their detail.
func WriteServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, vault.ErrInconsistentRestore) {
		message = "internal error"
	}
	WriteError(w, status, message)
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, vault.ErrInvalidSnapshot):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrMissingOrganization),
		errors.Is(err, vault.ErrInvalidFrequency),
		errors.Is(err, vault.ErrNoModulesSelected),
		errors.Is(err, vault.ErrRestoreNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrRestoreDisabled):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrMaintenanceRequired):
		return http.StatusConflict
	case errors.Is(err, vault.ErrNotRestorable),
		errors.Is(err, vault.ErrIntegrity),
		errors.Is(err, vault.ErrPayloadNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
