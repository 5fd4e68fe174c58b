package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("vault", c.VaultPath, vaultRequired, isDirectoryOrNotExist),
		criterio.Run("briefing.weekday", c.Briefing.Weekday, weekdayName),
		c.validateBriefingHour(),
		criterio.Run("agent.bin", c.Agent.Bin, binRequired),
		c.validateRateLimits(),
		c.validateIgnorePatterns(),
	)
}

func vaultRequired(path string) error {
	if path == "" {
		return fmt.Errorf("vault path is required (set vault: in config or --vault)")
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // existence is checked again at startup
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func weekdayName(name string) error {
	_, err := parseWeekday(name)
	return err
}

func binRequired(bin string) error {
	if bin == "" {
		return fmt.Errorf("agent binary is required")
	}
	return nil
}

func (c *Config) validateBriefingHour() error {
	if c.Briefing.Hour < 0 || c.Briefing.Hour > 23 {
		return criterio.NewFieldErrors("briefing.hour", fmt.Errorf("must be 0-23, got %d", c.Briefing.Hour))
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	var errs criterio.FieldErrorsBuilder
	for category, limit := range c.RateLimits {
		if limit.Max < 0 {
			errs = errs.Append(fmt.Sprintf("rate_limits[%q].max", category), fmt.Errorf("must be >= 0, got %d", limit.Max))
		}
		if limit.WindowSeconds <= 0 {
			errs = errs.Append(fmt.Sprintf("rate_limits[%q].window_seconds", category), fmt.Errorf("must be > 0, got %d", limit.WindowSeconds))
		}
	}
	return errs.ToError()
}

func (c *Config) validateIgnorePatterns() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Scanner.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("scanner.ignore[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}
