package foreman

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/ratelimit"
	"github.com/colonyops/foreman/internal/core/vault"
)

// Orchestrator drives the scan/dispatch loop: it diffs the watched folders
// against the last snapshot, advances item state, runs scheduled skills, and
// writes a health snapshot after every tick. All in-memory state is ephemeral;
// a restart re-seeds the snapshots from current directory contents.
type Orchestrator struct {
	cfg        *config.Config
	vault      *vault.Vault
	scanner    *vault.Scanner
	tracker    *Tracker
	dispatcher *Dispatcher
	limiter    *ratelimit.Limiter
	daylog     *vault.DayLog
	log        zerolog.Logger
	dryRun     bool

	knownInbox    map[string]bool
	knownApproved map[string]bool

	lastDashboard    time.Time
	lastBriefingDate string

	started     time.Time
	running     bool
	totalScans  int
	totalSkills int
	totalErrors int
	lastError   *ErrorDetail

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewOrchestrator wires the scan loop.
func NewOrchestrator(cfg *config.Config, v *vault.Vault, dispatcher *Dispatcher, limiter *ratelimit.Limiter, log zerolog.Logger, dryRun bool) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		vault:         v,
		scanner:       &vault.Scanner{Ignore: cfg.Scanner.Ignore},
		tracker:       NewTracker(),
		dispatcher:    dispatcher,
		limiter:       limiter,
		daylog:        vault.NewDayLog(v.Logs()),
		log:           log.With().Str("component", "orchestrator").Logger(),
		dryRun:        dryRun,
		knownInbox:    map[string]bool{},
		knownApproved: map[string]bool{},
		Now:           time.Now,
	}
}

// Run executes the polling loop until ctx is cancelled. Cancellation is
// observed only at the top of a tick; an in-flight agent invocation runs to
// completion or its own timeout.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.started = o.Now().UTC()
	o.running = true

	o.log.Info().
		Str("vault", o.vault.Root).
		Bool("dry_run", o.dryRun).
		Dur("scan_interval", o.cfg.ScanInterval()).
		Msg("orchestrator started")
	o.logEvent("orchestrator_start", "dry_run", strconv.FormatBool(o.dryRun))

	// Seed snapshots so only files arriving after startup count as new.
	o.knownInbox = o.scanOrEmpty(o.vault.NeedsAction())
	o.knownApproved = o.scanOrEmpty(o.vault.Approved())
	o.log.Info().
		Int("needs_action", len(o.knownInbox)).
		Int("approved", len(o.knownApproved)).
		Msg("initial snapshot")

	// Initial dashboard refresh.
	o.dispatchSkill(ctx, config.SkillUpdateDashboard, "")
	o.lastDashboard = o.Now()

	for {
		o.safeTick(ctx)
		o.writeHealth()

		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case <-time.After(o.cfg.ScanInterval()):
		}
	}
}

func (o *Orchestrator) shutdown() {
	o.running = false
	uptime := o.Now().UTC().Sub(o.started)
	o.logEvent("orchestrator_stop",
		"uptime", formatUptime(uptime),
		"scans", strconv.Itoa(o.totalScans),
		"skills_run", strconv.Itoa(o.totalSkills),
		"errors", strconv.Itoa(o.totalErrors),
	)
	o.writeHealth()
	o.log.Info().Msg("orchestrator stopped")
}

// safeTick runs one tick, converting panics into counted errors so the loop
// never crashes the process.
func (o *Orchestrator) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.totalErrors++
			o.log.Error().Interface("panic", r).Msg("tick error")
		}
	}()
	o.tick(ctx)
}

// tick is one scan cycle: folder diffs, then scheduled skills.
func (o *Orchestrator) tick(ctx context.Context) {
	o.totalScans++

	if fresh, ok := o.detectNew(o.vault.NeedsAction(), &o.knownInbox); ok && len(fresh) > 0 {
		o.log.Info().Int("count", len(fresh)).Msg("new items in Needs_Action")
		o.handleNewItems(ctx, fresh)
	}

	if fresh, ok := o.detectNew(o.vault.Approved(), &o.knownApproved); ok && len(fresh) > 0 {
		o.log.Info().Int("count", len(fresh)).Msg("approved items detected")
		o.handleApproved(ctx, fresh)
	}

	now := o.Now()
	if o.shouldUpdateDashboard(now) {
		o.log.Info().Msg("scheduled dashboard update")
		o.dispatchSkill(ctx, config.SkillUpdateDashboard, "")
		o.lastDashboard = now
	}

	if o.shouldRunBriefing(now) {
		o.log.Info().Msg("scheduled briefing generation")
		o.dispatchSkill(ctx, config.SkillCEOBriefing, "")
	}
}

// detectNew diffs a folder against its last snapshot. A scan error skips the
// folder for this tick without replacing the snapshot.
func (o *Orchestrator) detectNew(dir string, known *map[string]bool) ([]string, bool) {
	current, err := o.scanner.Scan(dir)
	if err != nil {
		o.log.Warn().Err(err).Str("dir", dir).Msg("scan failed, skipping folder this tick")
		return nil, false
	}
	fresh := vault.Diff(current, *known)
	*known = current
	return fresh, true
}

func (o *Orchestrator) scanOrEmpty(dir string) map[string]bool {
	files, err := o.scanner.Scan(dir)
	if err != nil {
		o.log.Warn().Err(err).Str("dir", dir).Msg("initial scan failed")
		return map[string]bool{}
	}
	return files
}

// handleNewItems tracks each arrival and dispatches one classification
// invocation covering the whole batch. On success every item in the batch is
// advanced to AWAITING_APPROVAL; there is no per-item feedback from the agent.
func (o *Orchestrator) handleNewItems(ctx context.Context, files []string) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		names = append(names, name)
		itemType := vault.ReadItemType(f)
		o.tracker.Observe(name, itemType, StateDetected)
		o.logEvent("item_detected", "file", name, "type", itemType)
	}

	outcome := o.dispatchSkill(ctx, config.SkillProcessInbox, "New items detected: "+strings.Join(names, ", "))

	for _, name := range names {
		if outcome == DispatchOK {
			o.tracker.Advance(name, StateProcessing)
			o.tracker.Advance(name, StateAwaitingApproval)
		} else {
			o.tracker.Fail(name, config.SkillProcessInbox+" failed")
		}
	}
}

// handleApproved dispatches execution for newly approved items. The
// invocation is assumed to finish the work before returning, so items advance
// through EXECUTING straight to DONE.
func (o *Orchestrator) handleApproved(ctx context.Context, files []string) {
	names := make([]string, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		names = append(names, name)
		o.logEvent("item_approved", "file", name)
		if _, ok := o.tracker.Get(name); ok {
			o.tracker.Advance(name, StateApproved)
		} else {
			o.tracker.Observe(name, "approved_action", StateApproved)
		}
	}

	outcome := o.dispatchSkill(ctx, config.SkillExecuteApproved, "Approved items to execute: "+strings.Join(names, ", "))

	for _, name := range names {
		if outcome == DispatchOK {
			o.tracker.Advance(name, StateExecuting)
			o.tracker.Advance(name, StateDone)
		} else {
			o.tracker.Fail(name, config.SkillExecuteApproved+" failed")
		}
	}

	if outcome == DispatchOK {
		o.dispatchSkill(ctx, config.SkillUpdateDashboard, "")
		o.lastDashboard = o.Now()
	}
}

// dispatchSkill wraps the shared dispatcher with counter and last-error
// bookkeeping. Rate-limit denials are recorded but not counted as errors.
func (o *Orchestrator) dispatchSkill(ctx context.Context, skill, contextNote string) DispatchOutcome {
	outcome := o.dispatcher.Dispatch(ctx, skill, contextNote)

	switch outcome {
	case DispatchOK:
		o.totalSkills++
	case DispatchFailed:
		o.totalErrors++
		if len(contextNote) > 100 {
			contextNote = contextNote[:100]
		}
		o.lastError = &ErrorDetail{Skill: skill, Time: o.Now().UTC(), Context: contextNote}
	case DispatchRateLimited:
		// Expected outcome, already audited.
	}
	return outcome
}

// shouldUpdateDashboard reports whether the refresh interval has elapsed.
func (o *Orchestrator) shouldUpdateDashboard(now time.Time) bool {
	return now.Sub(o.lastDashboard) >= o.cfg.DashboardInterval()
}

// shouldRunBriefing fires when the configured weekday and hour match, at most
// once per calendar date regardless of how often the loop ticks.
func (o *Orchestrator) shouldRunBriefing(now time.Time) bool {
	utc := now.UTC()
	today := utc.Format("2006-01-02")

	if utc.Weekday() == o.cfg.BriefingWeekday() && utc.Hour() == o.cfg.Briefing.Hour && o.lastBriefingDate != today {
		o.lastBriefingDate = today
		return true
	}
	return false
}

// HealthSnapshot assembles the current health document.
func (o *Orchestrator) HealthSnapshot() Health {
	now := o.Now().UTC()

	var uptime time.Duration
	if !o.started.IsZero() {
		uptime = now.Sub(o.started)
	}

	status := "stopped"
	if o.running {
		status = "running"
	}

	return Health{
		Status:         status,
		UptimeSeconds:  int(uptime.Seconds()),
		UptimeHuman:    formatUptime(uptime),
		DryRun:         o.dryRun,
		VaultPath:      o.vault.Root,
		TotalScans:     o.totalScans,
		TotalSkillsRun: o.totalSkills,
		TotalErrors:    o.totalErrors,
		LastError:      o.lastError,
		ActiveItems:    o.tracker.Len(),
		Queue: map[string]int{
			"needs_action":     o.scanner.Count(o.vault.NeedsAction()),
			"approved":         o.scanner.Count(o.vault.Approved()),
			"pending_approval": o.scanner.Count(o.vault.PendingApproval()),
		},
		RateLimits: o.limiter.StatusAll(),
		Items:      o.tracker.Items(),
		Timestamp:  now,
	}
}

func (o *Orchestrator) writeHealth() {
	if err := WriteHealth(o.vault.HealthFile(), o.HealthSnapshot()); err != nil {
		o.log.Error().Err(err).Msg("failed to write health file")
	}
}

func (o *Orchestrator) logEvent(event string, details ...string) {
	if err := o.daylog.Event(event, details...); err != nil {
		o.log.Debug().Err(err).Str("event", event).Msg("day log write failed")
	}
}

// Tracker exposes the item tracker for inspection.
func (o *Orchestrator) Tracker() *Tracker { return o.tracker }

// Tick runs a single scan cycle followed by a health write. It exists so the
// loop body can be exercised without running the polling loop.
func (o *Orchestrator) Tick(ctx context.Context) {
	if o.started.IsZero() {
		o.started = o.Now().UTC()
	}
	o.safeTick(ctx)
	o.writeHealth()
}
