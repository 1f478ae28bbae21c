package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/api/response"
	"github.com/edvin/agency/internal/vault"
)

type ScheduledRunner interface {
	Run(ctx context.Context) (vault.Report, error)
}

// ScheduledBackups is the entry point for an external scheduler that
// triggers the automatic backup pass over HTTP.
type ScheduledBackups struct {
	runner ScheduledRunner
}

func NewScheduledBackups(runner ScheduledRunner) *ScheduledBackups {
	return &ScheduledBackups{runner: runner}
}

func (h *ScheduledBackups) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("scheduled backup run failed")
		response.WriteServiceError(w, err)
		return
	}
	if report.Details == nil {
		report.Details = []vault.OrganizationResult{}
	}

	response.WriteJSON(w, http.StatusOK, report)
}
