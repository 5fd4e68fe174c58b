package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Frontmatter
	}{
		{
			name: "task file fields",
			content: `---
type: task
task_id: 20260831_120000
description: "Process all files"
status: in_progress
max_iterations: 10
current_iteration: 3
dry_run: true
---
# Task
`,
			want: Frontmatter{
				Type:             "task",
				TaskID:           "20260831_120000",
				Description:      "Process all files",
				Status:           "in_progress",
				MaxIterations:    10,
				CurrentIteration: 3,
				DryRun:           true,
			},
		},
		{
			name: "alert fields",
			content: `---
type: alert
severity: high
created: 2026-08-31T10:00:00Z
status: pending
---
body
`,
			want: Frontmatter{Type: "alert", Severity: "high", Created: "2026-08-31T10:00:00Z", Status: "pending"},
		},
		{
			name:    "no frontmatter",
			content: "# Just a heading\nSome content\n",
			want:    Frontmatter{},
		},
		{
			name:    "empty content",
			content: "",
			want:    Frontmatter{},
		},
		{
			name: "unknown keys ignored",
			content: `---
type: email
from: someone@example.com
---
`,
			want: Frontmatter{Type: "email"},
		},
		{
			name:    "delimiter not on first line",
			content: "\n---\ntype: nope\n---\n",
			want:    Frontmatter{},
		},
		{
			name: "indented dashes inside block scalar are not a fence",
			content: "---\ntype: task\ndescription: |-\n    line one\n    ---\n    line two\nstatus: in_progress\n---\nbody\n",
			want: Frontmatter{
				Type:        "task",
				Description: "line one\n---\nline two",
				Status:      "in_progress",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFrontmatter(tt.content)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadItemType(t *testing.T) {
	dir := t.TempDir()

	typed := filepath.Join(dir, "typed.md")
	require.NoError(t, os.WriteFile(typed, []byte("---\ntype: email\n---\nbody\n"), 0o644))
	assert.Equal(t, "email", ReadItemType(typed))

	bare := filepath.Join(dir, "bare.md")
	require.NoError(t, os.WriteFile(bare, []byte("no frontmatter here\n"), 0o644))
	assert.Equal(t, "unknown", ReadItemType(bare))

	assert.Equal(t, "unknown", ReadItemType(filepath.Join(dir, "missing.md")))
}
