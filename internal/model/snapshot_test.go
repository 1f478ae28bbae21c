package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStatusConstants(t *testing.T) {
	assert.Equal(t, "pending", SnapshotPending)
	assert.Equal(t, "processing", SnapshotProcessing)
	assert.Equal(t, "completed", SnapshotCompleted)
	assert.Equal(t, "failed", SnapshotFailed)
	assert.Equal(t, "restoring", SnapshotRestoring)
	assert.Equal(t, "archived", SnapshotArchived)
}

func TestSnapshot_Restorable(t *testing.T) {
	path := "org-1/snap-1.json"
	empty := ""

	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"completed with path", Snapshot{Status: SnapshotCompleted, StoragePath: &path}, true},
		{"completed without path", Snapshot{Status: SnapshotCompleted}, false},
		{"completed with empty path", Snapshot{Status: SnapshotCompleted, StoragePath: &empty}, false},
		{"failed", Snapshot{Status: SnapshotFailed}, false},
		{"processing", Snapshot{Status: SnapshotProcessing}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Restorable())
		})
	}
}

func TestFrequencyInterval(t *testing.T) {
	d, err := FrequencyInterval(FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	d, err = FrequencyInterval(FrequencyWeekly)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, d)

	d, err = FrequencyInterval(FrequencyMonthly)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, d)

	_, err = FrequencyInterval("hourly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hourly")
}

func TestScheduledOrganization_Due(t *testing.T) {
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name string
		org  ScheduledOrganization
		want bool
	}{
		{"never backed up", ScheduledOrganization{Frequency: FrequencyWeekly}, true},
		{"daily, yesterday", ScheduledOrganization{Frequency: FrequencyDaily, LastSnapshotAt: ago(24 * time.Hour)}, true},
		{"daily, cron drift", ScheduledOrganization{Frequency: FrequencyDaily, LastSnapshotAt: ago(23*time.Hour + 30*time.Minute)}, true},
		{"daily, two hours ago", ScheduledOrganization{Frequency: FrequencyDaily, LastSnapshotAt: ago(2 * time.Hour)}, false},
		{"weekly, three days ago", ScheduledOrganization{Frequency: FrequencyWeekly, LastSnapshotAt: ago(72 * time.Hour)}, false},
		{"weekly, eight days ago", ScheduledOrganization{Frequency: FrequencyWeekly, LastSnapshotAt: ago(8 * 24 * time.Hour)}, true},
		{"monthly, two weeks ago", ScheduledOrganization{Frequency: FrequencyMonthly, LastSnapshotAt: ago(14 * 24 * time.Hour)}, false},
		{"unknown frequency", ScheduledOrganization{Frequency: "hourly", LastSnapshotAt: ago(time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.org.Due(now))
		})
	}
}
