package model

import (
	"fmt"
	"time"
)

// VaultConfig holds the automatic backup settings of one organization.
type VaultConfig struct {
	OrganizationID string    `json:"organization_id"`
	Enabled        bool      `json:"enabled"`
	Frequency      string    `json:"frequency"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Backup frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// DefaultVaultFrequency is used when a configuration row is created lazily.
const DefaultVaultFrequency = FrequencyWeekly

// FrequencyInterval returns the minimum spacing between two scheduled
// snapshots for the given frequency.
func FrequencyInterval(frequency string) (time.Duration, error) {
	switch frequency {
	case FrequencyDaily:
		return 24 * time.Hour, nil
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, nil
	case FrequencyMonthly:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown backup frequency %q", frequency)
	}
}

// ScheduledOrganization is an organization opted into automatic backups,
// together with the creation time of its latest snapshot.
type ScheduledOrganization struct {
	OrganizationID string     `json:"organization_id"`
	Frequency      string     `json:"frequency"`
	LastSnapshotAt *time.Time `json:"last_snapshot_at,omitempty"`
}

// Due reports whether a new scheduled snapshot should be taken at now.
// An unknown frequency is treated as due so a misconfigured row never
// silently stops backups.
func (o ScheduledOrganization) Due(now time.Time) bool {
	if o.LastSnapshotAt == nil {
		return true
	}
	interval, err := FrequencyInterval(o.Frequency)
	if err != nil {
		return true
	}
	// Allow an hour of slack so a daily cron does not drift past its slot.
	return now.Sub(*o.LastSnapshotAt) >= interval-time.Hour
}
