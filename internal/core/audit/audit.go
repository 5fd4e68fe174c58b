// Package audit writes an append-only structured trail of externally
// significant actions, one JSON-lines file per UTC day.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result values for audit entries. The trail records attempted actions, not
// just successful ones.
const (
	ResultSuccess         = "success"
	ResultFailed          = "failed"
	ResultDryRun          = "dry_run"
	ResultRateLimited     = "rate_limited"
	ResultDenied          = "denied"
	ResultPendingApproval = "pending_approval"
)

// Entry is one immutable audit record.
type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ActionType string         `json:"action_type"`
	Actor      string         `json:"actor"`
	Target     string         `json:"target"`
	DryRun     bool           `json:"dry_run"`
	Result     string         `json:"result"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Trail appends entries to daily JSONL files. Write failures are logged and
// swallowed: audit logging must never fail the action being audited.
type Trail struct {
	dir string
	log zerolog.Logger

	mu sync.Mutex

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewTrail returns a Trail writing under dir.
func NewTrail(dir string, log zerolog.Logger) *Trail {
	return &Trail{dir: dir, log: log, Now: time.Now}
}

// Record appends one entry to the current UTC day's file and mirrors it to
// the logger. Always returns the entry written, even when the file write
// failed.
func (t *Trail) Record(actionType, actor, target, result string, dryRun bool, metadata map[string]any) Entry {
	now := t.Now().UTC()
	entry := Entry{
		ID:         uuid.NewString(),
		Timestamp:  now,
		ActionType: actionType,
		Actor:      actor,
		Target:     target,
		DryRun:     dryRun,
		Result:     result,
		Metadata:   metadata,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.append(entry, now); err != nil {
		t.log.Error().Err(err).Str("action_type", actionType).Msg("failed to write audit log")
	}

	evt := t.log.Info()
	if result == ResultFailed || result == ResultDenied || result == ResultRateLimited {
		evt = t.log.Warn()
	}
	evt.
		Str("action_type", actionType).
		Str("actor", actor).
		Str("target", target).
		Str("result", result).
		Bool("dry_run", dryRun).
		Msg("audit")

	return entry
}

func (t *Trail) append(entry Entry, now time.Time) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := filepath.Join(t.dir, "audit_"+now.Format("2006-01-02")+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(append(line, '\n'))
	return err
}
