package vault

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	v := New(root)

	require.NoError(t, v.EnsureDirs())

	for _, dir := range []string{v.NeedsAction(), v.Approved(), v.PendingApproval(), v.InProgress(), v.Done(), v.Logs(), v.AuditDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirs_MissingRoot(t *testing.T) {
	v := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, v.EnsureDirs())
}

func TestWriteAlert(t *testing.T) {
	root := t.TempDir()
	v := New(root)
	require.NoError(t, v.EnsureDirs())

	now := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	path, err := v.WriteAlert("ALERT_skill_failure_20260831_103000.md", "high", "Skill Execution Failed", "**Skill**: `process_inbox`\n", now)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	fm := ParseFrontmatter(string(data))
	assert.Equal(t, "alert", fm.Type)
	assert.Equal(t, "high", fm.Severity)
	assert.Equal(t, "pending", fm.Status)
	assert.Equal(t, "2026-08-31T10:30:00Z", fm.Created)
	assert.Contains(t, string(data), "# Alert: Skill Execution Failed")
	assert.Equal(t, v.NeedsAction(), filepath.Dir(path))
}

func TestDayLog_Event(t *testing.T) {
	dir := t.TempDir()
	d := NewDayLog(dir)
	d.Now = func() time.Time { return time.Date(2026, 8, 31, 9, 15, 30, 0, time.UTC) }

	require.NoError(t, d.Event("orchestrator_start", "dry_run", "true"))
	require.NoError(t, d.Event("item_detected", "file", "a.md", "type", "email"))

	data, err := os.ReadFile(filepath.Join(dir, "2026-08-31.md"))
	require.NoError(t, err)
	content := string(data)

	fm := ParseFrontmatter(content)
	assert.Equal(t, "daily_log", fm.Type)
	assert.Contains(t, content, "- `09:15:30` | **orchestrator_start** | dry_run=true")
	assert.Contains(t, content, "- `09:15:30` | **item_detected** | file=a.md, type=email")

	// Header written once.
	assert.Equal(t, 1, strings.Count(content, "# Daily Log"))
}
