package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/colonyops/foreman/pkg/tmpl"
)

const alertTmpl = `---
type: alert
severity: {{ .Severity }}
created: {{ .Created }}
status: pending
---

# Alert: {{ .Title }}

{{ .Body }}`

// WriteAlert writes a task-shaped alert file into Needs_Action so the failure
// re-enters the same pipeline the system watches. Returns the written path.
func (v *Vault) WriteAlert(filename, severity, title, body string, now time.Time) (string, error) {
	content, err := tmpl.Render(alertTmpl, map[string]string{
		"Severity": severity,
		"Created":  now.UTC().Format("2006-01-02T15:04:05Z"),
		"Title":    title,
		"Body":     body,
	})
	if err != nil {
		return "", fmt.Errorf("render alert: %w", err)
	}

	path := filepath.Join(v.NeedsAction(), filename)
	if err := os.MkdirAll(v.NeedsAction(), 0o755); err != nil {
		return "", fmt.Errorf("create alert dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write alert: %w", err)
	}
	return path, nil
}
