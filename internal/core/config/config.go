// Package config handles configuration loading and validation for foreman.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Skill names dispatched by the orchestrator.
const (
	SkillProcessInbox    = "process_inbox"
	SkillExecuteApproved = "execute_approved"
	SkillUpdateDashboard = "update_dashboard"
	SkillCEOBriefing     = "ceo_briefing"
)

// RateLimit caps how often a sensitive action category may run.
type RateLimit struct {
	Max           int `yaml:"max"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Window returns the rate limit window as a duration.
func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Briefing schedules the weekly briefing skill.
type Briefing struct {
	Weekday string `yaml:"weekday"` // e.g. "Sunday"
	Hour    int    `yaml:"hour"`    // 0-23, UTC
}

// Agent configures how the external agent executable is invoked.
type Agent struct {
	Bin                string   `yaml:"bin"`
	Args               []string `yaml:"args"`
	TimeoutSeconds     int      `yaml:"timeout_seconds"`      // orchestrator skill dispatch
	TaskTimeoutSeconds int      `yaml:"task_timeout_seconds"` // per task-loop iteration
}

// Scanner configures folder scanning.
type Scanner struct {
	// Ignore lists doublestar glob patterns matched against file base names.
	Ignore []string `yaml:"ignore"`
}

// Config holds the application configuration.
type Config struct {
	VaultPath string `yaml:"vault"`
	DryRun    bool   `yaml:"dry_run"`

	ScanIntervalSeconds      int `yaml:"scan_interval_seconds"`
	DashboardIntervalSeconds int `yaml:"dashboard_interval_seconds"`
	RetryDelaySeconds        int `yaml:"retry_delay_seconds"`

	MaxIterations         int `yaml:"max_iterations"`
	IterationPauseSeconds int `yaml:"iteration_pause_seconds"`

	Briefing   Briefing             `yaml:"briefing"`
	Agent      Agent                `yaml:"agent"`
	Scanner    Scanner              `yaml:"scanner"`
	RateLimits map[string]RateLimit `yaml:"rate_limits"`
}

// DefaultConfig returns a Config with sensible defaults. DryRun defaults to
// true; live execution must be enabled explicitly.
func DefaultConfig() Config {
	return Config{
		DryRun:                   true,
		ScanIntervalSeconds:      15,
		DashboardIntervalSeconds: 1800,
		RetryDelaySeconds:        5,
		MaxIterations:            10,
		IterationPauseSeconds:    2,
		Briefing: Briefing{
			Weekday: time.Sunday.String(),
			Hour:    23,
		},
		Agent: Agent{
			Bin:                "claude",
			Args:               []string{"--print", "--dangerously-skip-permissions"},
			TimeoutSeconds:     120,
			TaskTimeoutSeconds: 180,
		},
		RateLimits: map[string]RateLimit{
			"email_send":  {Max: 10, WindowSeconds: 3600},
			"payment":     {Max: 3, WindowSeconds: 86400},
			"social_post": {Max: 1, WindowSeconds: 86400},
			"file_delete": {Max: 5, WindowSeconds: 86400},
		},
	}
}

// Load reads configuration from the given path and applies the vault override.
// If configPath is empty or doesn't exist, returns defaults. vaultPath, when
// non-empty, takes precedence over the config file value.
func Load(configPath, vaultPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if vaultPath != "" {
		cfg.VaultPath = vaultPath
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values that a partial config file may have cleared.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.ScanIntervalSeconds <= 0 {
		c.ScanIntervalSeconds = def.ScanIntervalSeconds
	}
	if c.DashboardIntervalSeconds <= 0 {
		c.DashboardIntervalSeconds = def.DashboardIntervalSeconds
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = def.RetryDelaySeconds
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.IterationPauseSeconds < 0 {
		c.IterationPauseSeconds = def.IterationPauseSeconds
	}
	if c.Briefing.Weekday == "" {
		c.Briefing.Weekday = def.Briefing.Weekday
	}
	if c.Agent.Bin == "" {
		c.Agent.Bin = def.Agent.Bin
	}
	if c.Agent.Args == nil {
		c.Agent.Args = def.Agent.Args
	}
	if c.Agent.TimeoutSeconds <= 0 {
		c.Agent.TimeoutSeconds = def.Agent.TimeoutSeconds
	}
	if c.Agent.TaskTimeoutSeconds <= 0 {
		c.Agent.TaskTimeoutSeconds = def.Agent.TaskTimeoutSeconds
	}
	if c.RateLimits == nil {
		c.RateLimits = def.RateLimits
	}
}

// ScanInterval returns the delay between orchestrator ticks.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// DashboardInterval returns the minimum time between dashboard refreshes.
func (c *Config) DashboardInterval() time.Duration {
	return time.Duration(c.DashboardIntervalSeconds) * time.Second
}

// RetryDelay returns the pause before a failed dispatch is retried.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// IterationPause returns the pause between task loop iterations.
func (c *Config) IterationPause() time.Duration {
	return time.Duration(c.IterationPauseSeconds) * time.Second
}

// AgentTimeout returns the wall-clock limit for one skill dispatch.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

// TaskTimeout returns the wall-clock limit for one task loop iteration.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Agent.TaskTimeoutSeconds) * time.Second
}

// BriefingWeekday parses the configured briefing weekday.
// Validate guarantees the name is valid for loaded configs.
func (c *Config) BriefingWeekday() time.Weekday {
	d, _ := parseWeekday(c.Briefing.Weekday)
	return d
}

func parseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday: %q", name)
}
