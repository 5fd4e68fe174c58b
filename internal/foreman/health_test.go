package foreman

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{25 * time.Hour, "25h 0m 0s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatUptime(tt.in))
	}
}

func TestHealthRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "health.json")

	h := Health{
		Status:         "running",
		UptimeSeconds:  90,
		UptimeHuman:    "1m 30s",
		VaultPath:      "/vault",
		TotalScans:     12,
		TotalSkillsRun: 3,
		Queue:          map[string]int{"needs_action": 2},
		Timestamp:      time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, WriteHealth(path, h))

	got, err := ReadHealth(path)
	require.NoError(t, err)
	assert.Equal(t, h.Status, got.Status)
	assert.Equal(t, h.TotalScans, got.TotalScans)
	assert.Equal(t, 2, got.Queue["needs_action"])
	assert.Nil(t, got.LastError)
}

func TestReadHealthMissing(t *testing.T) {
	_, err := ReadHealth(filepath.Join(t.TempDir(), "health.json"))
	assert.Error(t, err)
}
