package foreman

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/agent"
	"github.com/colonyops/foreman/internal/core/audit"
	"github.com/colonyops/foreman/internal/core/ratelimit"
	"github.com/colonyops/foreman/internal/core/vault"
)

// CategorySkillRun is the rate-limit category consulted before every skill
// dispatch. Left unconfigured it is always permitted.
const CategorySkillRun = "skill_run"

const skillAlertBodyTmpl = "**Skill**: `%s`\n**Time**: %s UTC\n**Retries**: %d attempts (all failed)\n\n## Action Required\nCheck the foreman log for error details and resolve manually.\n"

// maxAttempts is a fixed policy constant: invoke once, retry exactly once.
const maxAttempts = 2

// DispatchOutcome distinguishes real failures from rate-limit denials, which
// are recorded but expected.
type DispatchOutcome int

const (
	DispatchOK DispatchOutcome = iota
	DispatchFailed
	DispatchRateLimited
)

// Dispatcher runs skills through the agent with the shared retry, rate-limit,
// and audit contract. A dispatch that fails twice produces an alert file in
// the inbox.
type Dispatcher struct {
	runner     agent.Runner
	limiter    *ratelimit.Limiter
	trail      *audit.Trail
	vault      *vault.Vault
	retryDelay time.Duration
	log        zerolog.Logger

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// NewDispatcher wires the dispatch-with-retry policy.
func NewDispatcher(runner agent.Runner, limiter *ratelimit.Limiter, trail *audit.Trail, v *vault.Vault, retryDelay time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		runner:     runner,
		limiter:    limiter,
		trail:      trail,
		vault:      v,
		retryDelay: retryDelay,
		log:        log.With().Str("component", "dispatcher").Logger(),
		Now:        time.Now,
		Sleep:      time.Sleep,
	}
}

// Dispatch invokes a skill, retrying exactly once after a fixed delay. On the
// second failure it writes an alert file and reports failure. Every attempt
// is audited, including dry runs and rate-limit denials.
func (d *Dispatcher) Dispatch(ctx context.Context, skill, contextNote string) DispatchOutcome {
	if !d.limiter.Allow(CategorySkillRun) {
		d.log.Warn().Str("skill", skill).Msg("rate limit exceeded, dispatch denied")
		d.trail.Record("skill_run", "orchestrator", skill, audit.ResultRateLimited, false, nil)
		return DispatchRateLimited
	}

	prompt := skillPrompt(d.vault, skill, contextNote)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			d.log.Warn().Str("skill", skill).Int("attempt", attempt).Msg("retrying skill")
			d.Sleep(d.retryDelay)
		}

		// A started invocation runs to completion or its own timeout;
		// cancellation is observed between dispatches, never mid-call.
		res := d.runner.Run(context.WithoutCancel(ctx), prompt)
		d.audit(skill, res, attempt)

		if res.OK {
			d.log.Info().Str("skill", skill).Bool("dry_run", res.DryRun).Msg("skill completed")
			return DispatchOK
		}
		d.log.Error().Str("skill", skill).Str("detail", res.Detail).Msg("skill failed")
	}

	d.writeAlert(skill)
	return DispatchFailed
}

func (d *Dispatcher) audit(skill string, res agent.Result, attempt int) {
	result := audit.ResultSuccess
	var metadata map[string]any

	switch {
	case res.DryRun:
		result = audit.ResultDryRun
	case !res.OK:
		result = audit.ResultFailed
		metadata = map[string]any{"attempt": attempt, "detail": res.Detail}
	}

	d.trail.Record("skill_run", "orchestrator", skill, result, res.DryRun, metadata)
}

func (d *Dispatcher) writeAlert(skill string) {
	now := d.Now().UTC()
	filename := fmt.Sprintf("ALERT_skill_failure_%s.md", now.Format("20060102_150405"))
	body := fmt.Sprintf(skillAlertBodyTmpl, skill, now.Format("2006-01-02 15:04:05"), maxAttempts)

	path, err := d.vault.WriteAlert(filename, "high", "Skill Execution Failed", body, now)
	if err != nil {
		d.log.Error().Err(err).Str("skill", skill).Msg("failed to write alert file")
		return
	}
	d.log.Warn().Str("alert", path).Str("skill", skill).Msg("alert created")
}
