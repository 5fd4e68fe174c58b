package foreman

import (
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/ratelimit"
	"github.com/colonyops/foreman/pkg/iojson"
)

// ErrorDetail captures the last dispatch failure for the health snapshot.
type ErrorDetail struct {
	Skill   string    `json:"skill"`
	Time    time.Time `json:"time"`
	Context string    `json:"context,omitempty"`
}

// Health is the JSON snapshot written after every orchestrator tick for
// external monitoring.
type Health struct {
	Status         string                      `json:"status"`
	UptimeSeconds  int                         `json:"uptime_seconds"`
	UptimeHuman    string                      `json:"uptime_human"`
	DryRun         bool                        `json:"dry_run"`
	VaultPath      string                      `json:"vault_path"`
	TotalScans     int                         `json:"total_scans"`
	TotalSkillsRun int                         `json:"total_skills_run"`
	TotalErrors    int                         `json:"total_errors"`
	LastError      *ErrorDetail                `json:"last_error"`
	ActiveItems    int                         `json:"active_items"`
	Queue          map[string]int              `json:"queue"`
	RateLimits     map[string]ratelimit.Status `json:"rate_limits"`
	Items          []ItemView                  `json:"items"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// WriteHealth writes the snapshot to path.
func WriteHealth(path string, h Health) error {
	return iojson.WriteFile(path, h)
}

// ReadHealth reads a previously written snapshot.
func ReadHealth(path string) (Health, error) {
	return iojson.ReadFile[Health](path)
}

// formatUptime renders seconds as "1h 2m 3s", dropping leading zero units.
func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
