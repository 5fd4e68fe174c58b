package foreman

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/agent"
	"github.com/colonyops/foreman/internal/core/audit"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/vault"
)

func newTestTaskLoop(t *testing.T, v *vault.Vault, runner agent.Runner, maxIterations int) *TaskLoop {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MaxIterations = maxIterations

	log := zerolog.Nop()
	l := NewTaskLoop(&cfg, v, runner, audit.NewTrail(v.AuditDir(), log), log, false)
	l.Sleep = func(time.Duration) {}
	return l
}

func TestTaskLoopCompletesOnMarker(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{
		{OK: true, Output: "set things up, more to do"},
		{OK: true, Output: "all finished\n" + CompletionMarker},
	}}
	l := newTestTaskLoop(t, v, runner, 5)

	done, err := l.Run(context.Background(), "reconcile the ledger")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, runner.Calls())

	entries, err := os.ReadDir(v.Done())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(v.Done(), entries[0].Name()))
	require.NoError(t, err)
	fm := vault.ParseFrontmatter(string(content))
	assert.Equal(t, TaskStatusCompleted, fm.Status)
	assert.Equal(t, 2, fm.CurrentIteration)
}

func TestTaskLoopCompletesWhenFileMovedToDone(t *testing.T) {
	v := newTestVault(t)

	// Runner without the marker; it "moves" the task file like the agent would.
	runner := &movingRunner{v: v}
	l := newTestTaskLoop(t, v, runner, 5)

	done, err := l.Run(context.Background(), "write the weekly report")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, runner.calls)
}

// movingRunner simulates an agent that relocates the task file itself.
type movingRunner struct {
	v     *vault.Vault
	calls int
}

func (r *movingRunner) Run(ctx context.Context, prompt string) agent.Result {
	r.calls++
	entries, _ := os.ReadDir(r.v.InProgress())
	for _, e := range entries {
		_ = os.Rename(filepath.Join(r.v.InProgress(), e.Name()), filepath.Join(r.v.Done(), e.Name()))
	}
	return agent.Result{OK: true, Output: "moved the file myself"}
}

func TestTaskLoopInboxHeuristic(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{{OK: true, Output: "inbox cleared"}}}
	l := newTestTaskLoop(t, v, runner, 5)

	// Description names the inbox folder and the folder is empty.
	done, err := l.Run(context.Background(), "Clear everything out of Needs_Action")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, runner.Calls())
}

func TestTaskLoopExhaustionWritesAlert(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{{OK: true, Output: "still going"}}}
	l := newTestTaskLoop(t, v, runner, 2)

	done, err := l.Run(context.Background(), "never finishes")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 2, runner.Calls())

	alerts := alertFiles(t, v)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "ALERT_task_exhausted_")

	content, err := os.ReadFile(filepath.Join(v.NeedsAction(), alerts[0]))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Iteration 1")
	assert.Contains(t, string(content), "Iteration 2")

	// Task file stays in In_Progress with the exhausted status.
	entries, err := os.ReadDir(v.InProgress())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	taskContent, err := os.ReadFile(filepath.Join(v.InProgress(), entries[0].Name()))
	require.NoError(t, err)
	fm := vault.ParseFrontmatter(string(taskContent))
	assert.Equal(t, TaskStatusMaxIterationsExceeded, fm.Status)
}

func TestTaskLoopInterrupted(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{{OK: true, Output: "progress"}}}
	l := newTestTaskLoop(t, v, runner, 5)

	ctx, cancel := context.WithCancel(context.Background())
	l.Sleep = func(time.Duration) { cancel() }

	done, err := l.Run(ctx, "long running work")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, runner.Calls(), "cancellation is observed between iterations")

	entries, err := os.ReadDir(v.InProgress())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(v.InProgress(), entries[0].Name()))
	require.NoError(t, err)
	fm := vault.ParseFrontmatter(string(content))
	assert.Equal(t, TaskStatusInterrupted, fm.Status)
}

func TestTaskLoopInvocationSurvivesCancellation(t *testing.T) {
	v := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &cancellingRunner{cancel: cancel, result: agent.Result{OK: true, Output: "made progress"}}
	l := newTestTaskLoop(t, v, runner, 5)

	done, err := l.Run(ctx, "long running work")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, runner.calls)
	assert.False(t, runner.interrupted, "the in-flight iteration must run to completion")

	// The finished iteration is recorded before the loop observes the stop.
	entries, err := os.ReadDir(v.InProgress())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(v.InProgress(), entries[0].Name()))
	require.NoError(t, err)
	fm := vault.ParseFrontmatter(string(content))
	assert.Equal(t, TaskStatusInterrupted, fm.Status)
	assert.Equal(t, 1, fm.CurrentIteration)
}

func TestTaskLoopFailedIterationRecordsDetail(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{
		{OK: false, Detail: "timeout after 3m0s"},
		{OK: true, Output: "recovered\n" + CompletionMarker},
	}}
	l := newTestTaskLoop(t, v, runner, 5)

	done, err := l.Run(context.Background(), "flaky work")
	require.NoError(t, err)
	assert.True(t, done)

	entries, err := os.ReadDir(v.Done())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(v.Done(), entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "timeout after 3m0s")
}

func TestTaskLoopPromptCarriesHistory(t *testing.T) {
	v := newTestVault(t)
	runner := &agent.ScriptedRunner{Results: []agent.Result{
		{OK: true, Output: "created the draft"},
		{OK: true, Output: "done\n" + CompletionMarker},
	}}
	l := newTestTaskLoop(t, v, runner, 5)

	done, err := l.Run(context.Background(), "publish the post")
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, runner.Prompts, 2)

	assert.NotContains(t, runner.Prompts[0], "Previous Iterations")
	assert.Contains(t, runner.Prompts[1], "Previous Iterations")
	assert.Contains(t, runner.Prompts[1], "created the draft")
	assert.Contains(t, runner.Prompts[1], "iteration 2 of 5")
}
