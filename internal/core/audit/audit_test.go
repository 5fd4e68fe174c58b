package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []Entry {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestRecord_AppendsOneLinePerCall(t *testing.T) {
	dir := t.TempDir()
	trail := NewTrail(dir, zerolog.Nop())
	trail.Now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	trail.Record("skill_run", "orchestrator", "process_inbox", ResultSuccess, false, nil)
	trail.Record("skill_run", "orchestrator", "process_inbox", ResultFailed, false, map[string]any{"attempt": 2})
	trail.Record("email_send", "agent", "client@example.com", ResultRateLimited, false, nil)

	entries := readLines(t, filepath.Join(dir, "audit_2026-08-31.jsonl"))
	require.Len(t, entries, 3)

	assert.Equal(t, "skill_run", entries[0].ActionType)
	assert.Equal(t, ResultSuccess, entries[0].Result)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, ResultFailed, entries[1].Result)
	assert.EqualValues(t, 2, entries[1].Metadata["attempt"])
	assert.Equal(t, ResultRateLimited, entries[2].Result)

	// Chronological by write order, distinct IDs.
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestRecord_OneFilePerUTCDay(t *testing.T) {
	dir := t.TempDir()
	trail := NewTrail(dir, zerolog.Nop())

	day := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	trail.Now = func() time.Time { return day }
	trail.Record("skill_run", "orchestrator", "a", ResultSuccess, false, nil)

	day = day.Add(2 * time.Minute) // crosses midnight
	trail.Record("skill_run", "orchestrator", "b", ResultSuccess, false, nil)

	assert.Len(t, readLines(t, filepath.Join(dir, "audit_2026-08-31.jsonl")), 1)
	assert.Len(t, readLines(t, filepath.Join(dir, "audit_2026-09-01.jsonl")), 1)
}

func TestRecord_RecordsDryRunAndDenied(t *testing.T) {
	dir := t.TempDir()
	trail := NewTrail(dir, zerolog.Nop())
	trail.Now = func() time.Time { return time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC) }

	trail.Record("skill_run", "taskloop", "inbox cleanup", ResultDryRun, true, nil)

	entries := readLines(t, filepath.Join(dir, "audit_2026-08-31.jsonl"))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].DryRun)
	assert.Equal(t, ResultDryRun, entries[0].Result)
}

func TestRecord_NeverFailsOnUnwritableDir(t *testing.T) {
	// Point the trail at a path that cannot be a directory.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	trail := NewTrail(filepath.Join(blocker, "audit"), zerolog.Nop())

	assert.NotPanics(t, func() {
		entry := trail.Record("skill_run", "orchestrator", "x", ResultSuccess, false, nil)
		assert.NotEmpty(t, entry.ID)
	})
}
