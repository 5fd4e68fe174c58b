package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("---\ntype: test\n---\nbody\n"), 0o644))
	}
}

func names(t *testing.T, set map[string]bool) []string {
	t.Helper()
	var out []string
	for path := range set {
		out = append(out, filepath.Base(path))
	}
	return out
}

func TestScan_MarkdownOnly(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "task.md", "nested/inner.md", "notes.txt", ".gitkeep", "TEMPLATE_approval.md")

	s := &Scanner{}
	got, err := s.Scan(dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"task.md", "inner.md"}, names(t, got))
}

func TestScan_MissingDirIsEmpty(t *testing.T) {
	s := &Scanner{}
	got, err := s.Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_IgnoreGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "task.md", "DRAFT_one.md", "DRAFT_two.md")

	s := &Scanner{Ignore: []string{"DRAFT_*.md"}}
	got, err := s.Scan(dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"task.md"}, names(t, got))
}

func TestScan_SkipsProtected(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "task.md", "Dashboard.md", ".obsidian/workspace.md")

	s := &Scanner{}
	got, err := s.Scan(dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"task.md"}, names(t, got))
}

func TestDiff_ReportsNewExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	s := &Scanner{}

	known, err := s.Scan(dir)
	require.NoError(t, err)

	writeFiles(t, dir, "a.md", "b.md")

	current, err := s.Scan(dir)
	require.NoError(t, err)

	fresh := Diff(current, known)
	require.Len(t, fresh, 2)

	// A file still present in the next scan is not reported again.
	known = current
	current, err = s.Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, Diff(current, known))

	// A later arrival is reported once.
	writeFiles(t, dir, "c.md")
	known = current
	current, err = s.Scan(dir)
	require.NoError(t, err)

	fresh = Diff(current, known)
	require.Len(t, fresh, 1)
	assert.Equal(t, "c.md", filepath.Base(fresh[0]))
}

func TestDiff_Sorted(t *testing.T) {
	current := map[string]bool{"/v/b.md": true, "/v/a.md": true, "/v/c.md": true}
	assert.Equal(t, []string{"/v/a.md", "/v/b.md", "/v/c.md"}, Diff(current, nil))
}

func TestProtected(t *testing.T) {
	assert.True(t, Protected("/vault/.claude/skills/x.md"))
	assert.True(t, Protected("Company_Handbook.md"))
	assert.False(t, Protected("/vault/Needs_Action/task.md"))
}
