package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// denylist holds placeholder and template file names that never count as
// work items.
var denylist = map[string]bool{
	".gitkeep":             true,
	"TEMPLATE_approval.md": true,
}

// Scanner enumerates task-bearing markdown files in a folder. It is a pure
// function of file-system state; callers hold snapshots and diff them.
type Scanner struct {
	// Ignore holds doublestar glob patterns matched against file base names.
	Ignore []string
}

// Scan returns the set of markdown task files currently under dir, keyed by
// absolute path. A missing directory yields an empty set; any other read
// error is returned for the caller to log and skip.
func (s *Scanner) Scan(dir string) (map[string]bool, error) {
	files := map[string]bool{}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return files, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := d.Name()
		if d.IsDir() {
			if path != dir && Protected(base) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(base) != ".md" {
			return nil
		}
		if denylist[base] || Protected(base) || s.ignored(base) {
			return nil
		}
		files[path] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Count returns the number of task files under dir, zero on scan failure.
func (s *Scanner) Count(dir string) int {
	files, err := s.Scan(dir)
	if err != nil {
		return 0
	}
	return len(files)
}

func (s *Scanner) ignored(base string) bool {
	for _, pattern := range s.Ignore {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Diff returns the paths present in current but not in known, sorted.
// Snapshot replacement, not file locking, is what keeps detection at-most-once
// per scan sequence.
func Diff(current, known map[string]bool) []string {
	var fresh []string
	for path := range current {
		if !known[path] {
			fresh = append(fresh, path)
		}
	}
	sort.Strings(fresh)
	return fresh
}
