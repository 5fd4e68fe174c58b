package foreman

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/foreman/internal/core/agent"
	"github.com/colonyops/foreman/internal/core/audit"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/vault"
)

// TaskLoop runs a single task to completion by repeatedly invoking the agent,
// feeding each iteration a summary of everything tried so far. The loop is
// bounded; exhaustion escalates to a human via an alert file.
type TaskLoop struct {
	cfg     *config.Config
	vault   *vault.Vault
	runner  agent.Runner
	trail   *audit.Trail
	scanner *vault.Scanner
	daylog  *vault.DayLog
	log     zerolog.Logger
	dryRun  bool

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// NewTaskLoop wires the iterative runner.
func NewTaskLoop(cfg *config.Config, v *vault.Vault, runner agent.Runner, trail *audit.Trail, log zerolog.Logger, dryRun bool) *TaskLoop {
	return &TaskLoop{
		cfg:     cfg,
		vault:   v,
		runner:  runner,
		trail:   trail,
		scanner: &vault.Scanner{Ignore: cfg.Scanner.Ignore},
		daylog:  vault.NewDayLog(v.Logs()),
		log:     log.With().Str("component", "taskloop").Logger(),
		dryRun:  dryRun,
		Now:     time.Now,
		Sleep:   time.Sleep,
	}
}

// Run executes the task until a completion signal, cancellation, or iteration
// exhaustion. It returns true only when the task completed.
func (l *TaskLoop) Run(ctx context.Context, description string) (bool, error) {
	maxIter := l.cfg.MaxIterations

	tf, err := NewTaskFile(l.vault, description, maxIter, l.dryRun, l.Now())
	if err != nil {
		return false, err
	}
	tf.Now = l.Now

	l.log.Info().
		Str("task", tf.Name).
		Int("max_iterations", maxIter).
		Bool("dry_run", l.dryRun).
		Msg("task started")
	l.logEvent("task_started", "task", tf.Name, "max_iterations", strconv.Itoa(maxIter))

	for i := 1; i <= maxIter; i++ {
		if err := ctx.Err(); err != nil {
			l.log.Warn().Str("task", tf.Name).Int("iteration", i).Msg("task interrupted")
			l.logEvent("task_interrupted", "task", tf.Name, "iteration", strconv.Itoa(i))
			return false, tf.SetStatus(TaskStatusInterrupted)
		}

		l.log.Info().Str("task", tf.Name).Int("iteration", i).Int("of", maxIter).Msg("iteration starting")

		prompt := taskPrompt(taskPromptData{
			VaultPath:     l.vault.Root,
			Description:   description,
			Iteration:     i,
			MaxIterations: maxIter,
			Iterations:    tf.Iterations,
			TaskFilename:  tf.Name,
		})

		// A started invocation runs to completion or its own timeout;
		// cancellation is observed at the top of the next iteration.
		res := l.runner.Run(context.WithoutCancel(ctx), prompt)
		l.auditIteration(tf, i, res)

		rec := IterationRecord{
			Number:    i,
			Timestamp: l.Now().UTC(),
			Success:   res.OK,
			Summary:   summarize(res.Output),
			Duration:  res.Duration.Round(time.Millisecond),
			OutputLen: len(res.Output),
		}
		if !res.OK {
			rec.Summary = res.Detail
		}
		if err := tf.AppendIteration(rec); err != nil {
			l.log.Error().Err(err).Str("task", tf.Name).Msg("failed to update task file")
		}

		if res.OK && l.isComplete(tf, description, res.Output) {
			l.log.Info().Str("task", tf.Name).Int("iterations", i).Msg("task completed")
			l.logEvent("task_completed", "task", tf.Name, "iterations", strconv.Itoa(i))
			return true, tf.SetStatus(TaskStatusCompleted)
		}

		if i < maxIter {
			l.Sleep(l.cfg.IterationPause())
		}
	}

	l.log.Error().Str("task", tf.Name).Int("iterations", maxIter).Msg("iteration budget exhausted")
	l.logEvent("task_exhausted", "task", tf.Name, "iterations", strconv.Itoa(maxIter))
	if err := tf.SetStatus(TaskStatusMaxIterationsExceeded); err != nil {
		l.log.Error().Err(err).Msg("failed to update task status")
	}
	l.writeExhaustionAlert(tf)
	return false, nil
}

// isComplete checks the completion signals in precedence order: the task file
// moved to Done, the completion marker in the output, then a weak heuristic
// for inbox-clearing tasks.
func (l *TaskLoop) isComplete(tf *TaskFile, description, output string) bool {
	if tf.InDone() {
		return true
	}
	if strings.Contains(output, CompletionMarker) {
		return true
	}
	if strings.Contains(description, vault.DirNeedsAction) && l.scanner.Count(l.vault.NeedsAction()) == 0 {
		return true
	}
	return false
}

func (l *TaskLoop) auditIteration(tf *TaskFile, iteration int, res agent.Result) {
	result := audit.ResultSuccess
	var metadata map[string]any

	switch {
	case res.DryRun:
		result = audit.ResultDryRun
	case !res.OK:
		result = audit.ResultFailed
		metadata = map[string]any{"detail": res.Detail}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["iteration"] = iteration

	l.trail.Record("task_iteration", "taskloop", tf.Name, result, res.DryRun, metadata)
}

func (l *TaskLoop) writeExhaustionAlert(tf *TaskFile) {
	now := l.Now().UTC()

	var b strings.Builder
	fmt.Fprintf(&b, "**Task**: %s\n**Iterations used**: %d of %d\n\n## Iteration History\n", tf.Description, len(tf.Iterations), tf.MaxIterations)
	for _, rec := range tf.Iterations {
		status := "failed"
		if rec.Success {
			status = "success"
		}
		fmt.Fprintf(&b, "- Iteration %d (%s, %s): %s\n", rec.Number, status, rec.Duration, rec.Summary)
	}
	b.WriteString("\n## Action Required\nThe task did not complete within its iteration budget. Review the task file in In_Progress and either finish it manually or restart it with a refined description.\n")

	filename := fmt.Sprintf("ALERT_task_exhausted_%s.md", tf.TaskID)
	path, err := l.vault.WriteAlert(filename, "high", "Task Iteration Budget Exhausted", b.String(), now)
	if err != nil {
		l.log.Error().Err(err).Str("task", tf.Name).Msg("failed to write alert file")
		return
	}
	l.log.Warn().Str("alert", path).Str("task", tf.Name).Msg("alert created")
}

func (l *TaskLoop) logEvent(event string, details ...string) {
	if err := l.daylog.Event(event, details...); err != nil {
		l.log.Debug().Err(err).Str("event", event).Msg("day log write failed")
	}
}
