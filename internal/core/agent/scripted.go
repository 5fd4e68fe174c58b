package agent

import (
	"context"
	"sync"
)

// ScriptedRunner returns pre-configured results in order, recording every
// prompt it receives. When the script is exhausted the last result repeats;
// an empty script always succeeds.
type ScriptedRunner struct {
	mu      sync.Mutex
	next    int
	Results []Result
	Prompts []string
}

// Run records the prompt and returns the next scripted result.
func (r *ScriptedRunner) Run(ctx context.Context, prompt string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Prompts = append(r.Prompts, prompt)

	if len(r.Results) == 0 {
		return Result{OK: true}
	}
	if r.next >= len(r.Results) {
		return r.Results[len(r.Results)-1]
	}
	res := r.Results[r.next]
	r.next++
	return res
}

// Calls returns how many invocations the runner has served.
func (r *ScriptedRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Prompts)
}

// Reset clears recorded prompts and restarts the script.
func (r *ScriptedRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prompts = nil
	r.next = 0
}
