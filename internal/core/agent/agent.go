// Package agent invokes the external agent executable. The agent is a black
// box judged only by exit code and captured output; all subprocess-level
// errors are converted into a failure Result and never escape this boundary.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxStderrLen caps captured stderr so large or ANSI-polluted output cannot
// corrupt logs, alert files, or prompts.
const maxStderrLen = 500

// Result is the outcome of one agent invocation.
type Result struct {
	OK       bool
	Output   string // captured stdout, possibly partial on failure
	Detail   string // short diagnostic on failure, empty on success
	Duration time.Duration
	DryRun   bool
}

// Runner runs the external agent with a prompt.
type Runner interface {
	Run(ctx context.Context, prompt string) Result
}

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// CLIRunner invokes the agent binary with the prompt as the final argument,
// in a fixed working directory, bounded by a wall-clock timeout.
type CLIRunner struct {
	Bin     string
	Args    []string
	Dir     string
	Timeout time.Duration
	Log     zerolog.Logger
}

// Run executes the agent synchronously. Success is exit code 0; non-zero
// exit, a missing executable, and a timeout all yield a failure Result with
// a short diagnostic.
func (r *CLIRunner) Run(ctx context.Context, prompt string) Result {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.Args)+1)
	args = append(args, r.Args...)
	args = append(args, prompt)

	cmd := exec.CommandContext(runCtx, r.Bin, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{buf: &stderr, max: maxStderrLen}

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Output:   stdout.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		result.OK = true

	case runCtx.Err() == context.DeadlineExceeded:
		result.Detail = fmt.Sprintf("timeout after %s", r.Timeout)

	case errors.Is(err, exec.ErrNotFound):
		result.Detail = fmt.Sprintf("agent executable not found: %s", r.Bin)

	default:
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Detail = fmt.Sprintf("exit %d: %s", exitErr.ExitCode(), detail)
		} else {
			result.Detail = detail
		}
	}

	if !result.OK {
		r.Log.Error().Str("detail", result.Detail).Dur("duration", result.Duration).Msg("agent invocation failed")
	}
	return result
}

// DryRunner synthesizes successful invocations without side effects so the
// rest of the pipeline can be exercised.
type DryRunner struct {
	Log zerolog.Logger
}

// Run returns a deterministic "would have executed" result.
func (r *DryRunner) Run(ctx context.Context, prompt string) Result {
	r.Log.Info().Int("prompt_len", len(prompt)).Msg("dry run, skipping agent invocation")
	return Result{
		OK:     true,
		DryRun: true,
		Output: fmt.Sprintf("DRY RUN: would invoke agent (prompt length %d chars)", len(prompt)),
	}
}
