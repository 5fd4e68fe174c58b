// Package vault models the watched directory tree that mediates all work:
// fixed-role folders whose contents encode item lifecycle state.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Folder names inside the vault root. The presence of a file in one of these
// folders is part of that item's lifecycle state.
const (
	DirNeedsAction     = "Needs_Action"
	DirApproved        = "Approved"
	DirPendingApproval = "Pending_Approval"
	DirInProgress      = "In_Progress"
	DirDone            = "Done"
	DirLogs            = "Logs"
)

// protectedNames are vault files and directories that scans skip and that
// must never be treated as work items.
var protectedNames = map[string]bool{
	".obsidian":           true,
	".claude":             true,
	".git":                true,
	".gitkeep":            true,
	"Company_Handbook.md": true,
	"Business_Goals.md":   true,
	"Dashboard.md":        true,
	"Welcome.md":          true,
}

// Vault describes the directory tree holding all watched folders, task files,
// logs, and the agent's skill definitions.
type Vault struct {
	Root string
}

// New returns a Vault rooted at the given path.
func New(root string) *Vault {
	return &Vault{Root: root}
}

// NeedsAction is the inbox folder watched for new work items.
func (v *Vault) NeedsAction() string { return filepath.Join(v.Root, DirNeedsAction) }

// Approved holds items an operator has approved for execution.
func (v *Vault) Approved() string { return filepath.Join(v.Root, DirApproved) }

// PendingApproval holds approval artifacts awaiting an operator decision.
func (v *Vault) PendingApproval() string { return filepath.Join(v.Root, DirPendingApproval) }

// InProgress holds task state files for running task loops.
func (v *Vault) InProgress() string { return filepath.Join(v.Root, DirInProgress) }

// Done holds terminal task state files.
func (v *Vault) Done() string { return filepath.Join(v.Root, DirDone) }

// Logs is the folder for daily event logs and the audit trail.
func (v *Vault) Logs() string { return filepath.Join(v.Root, DirLogs) }

// AuditDir is the folder for daily JSONL audit files.
func (v *Vault) AuditDir() string { return filepath.Join(v.Logs(), "audit") }

// HealthFile is where the orchestrator writes its health snapshot.
func (v *Vault) HealthFile() string { return filepath.Join(v.Root, ".claude", "health.json") }

// SkillPath returns the path of a named skill definition.
func (v *Vault) SkillPath(name string) string {
	return filepath.Join(v.Root, ".claude", "skills", name+".md")
}

// EnsureDirs verifies the vault root exists and creates the watched folders.
func (v *Vault) EnsureDirs() error {
	if _, err := os.Stat(v.Root); err != nil {
		return fmt.Errorf("vault not found: %s", v.Root)
	}

	dirs := []string{
		v.NeedsAction(),
		v.Approved(),
		v.PendingApproval(),
		v.InProgress(),
		v.Done(),
		v.Logs(),
		v.AuditDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Protected reports whether any component of path is a protected vault name.
func Protected(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if protectedNames[part] {
			return true
		}
	}
	return false
}
