package vault

import (
	"context"
	"fmt"

	"github.com/juju/clock"
	"github.com/rs/zerolog"

	"github.com/edvin/agency/internal/model"
)

// ConfigService reads and updates per-organization vault configuration.
type ConfigService struct {
	configs ConfigRepository
	clock   clock.Clock
	logger  zerolog.Logger
}

// NewConfigService creates a configuration service.
func NewConfigService(configs ConfigRepository, clk clock.Clock, logger zerolog.Logger) *ConfigService {
	return &ConfigService{
		configs: configs,
		clock:   clk,
		logger:  logger.With().Str("component", "vault-config").Logger(),
	}
}

// Get returns the organization's configuration, creating the default
// (disabled, weekly) on first read.
func (s *ConfigService) Get(ctx context.Context, organizationID string) (*model.VaultConfig, error) {
	if organizationID == "" {
		return nil, ErrMissingOrganization
	}
	cfg, err := s.configs.Get(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("get vault config: %w", err)
	}
	return cfg, nil
}

// Update sets whether scheduled backups run and how often.
func (s *ConfigService) Update(ctx context.Context, organizationID string, enabled bool, frequency string) (*model.VaultConfig, error) {
	if organizationID == "" {
		return nil, ErrMissingOrganization
	}
	if _, err := model.FrequencyInterval(frequency); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}

	cfg, err := s.Get(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	cfg.Enabled = enabled
	cfg.Frequency = frequency
	cfg.UpdatedAt = s.clock.Now().UTC()

	if err := s.configs.Update(ctx, cfg); err != nil {
		return nil, fmt.Errorf("update vault config: %w", err)
	}
	s.logger.Info().
		Str("organization_id", organizationID).
		Bool("enabled", enabled).
		Str("frequency", frequency).
		Msg("vault config updated")
	return cfg, nil
}
