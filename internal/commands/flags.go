package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/agent"
	"github.com/colonyops/foreman/internal/core/audit"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/ratelimit"
	"github.com/colonyops/foreman/internal/core/vault"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	VaultPath  string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "foreman", "config.yaml")
}

// services holds the wired dependencies shared by the run and task commands.
type services struct {
	vault   *vault.Vault
	limiter *ratelimit.Limiter
	trail   *audit.Trail
	dryRun  bool
}

// wire builds the shared service stack from loaded config. The dryRun flag
// from the command line is OR'd with the config value: live execution requires
// both to be off.
func wire(cfg *config.Config, log zerolog.Logger, dryRunFlag bool) (*services, error) {
	v := vault.New(cfg.VaultPath)
	if err := v.EnsureDirs(); err != nil {
		return nil, err
	}

	limits := make(map[string]ratelimit.Limit, len(cfg.RateLimits))
	for category, rl := range cfg.RateLimits {
		limits[category] = ratelimit.Limit{Max: rl.Max, Window: rl.Window()}
	}

	return &services{
		vault:   v,
		limiter: ratelimit.New(limits),
		trail:   audit.NewTrail(v.AuditDir(), log),
		dryRun:  dryRunFlag || cfg.DryRun,
	}, nil
}

// runner picks the agent runner: a real subprocess invocation or the dry-run
// stand-in.
func (s *services) runner(cfg *config.Config, log zerolog.Logger, timeout time.Duration) agent.Runner {
	if s.dryRun {
		return &agent.DryRunner{Log: log}
	}
	return &agent.CLIRunner{
		Bin:     cfg.Agent.Bin,
		Args:    cfg.Agent.Args,
		Dir:     cfg.VaultPath,
		Timeout: timeout,
		Log:     log.With().Str("component", "agent").Logger(),
	}
}
