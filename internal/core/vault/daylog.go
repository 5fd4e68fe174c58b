package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DayLog appends structured events to one markdown file per UTC day.
type DayLog struct {
	dir string

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewDayLog returns a DayLog writing under the given directory.
func NewDayLog(dir string) *DayLog {
	return &DayLog{dir: dir, Now: time.Now}
}

// Event appends one event line to today's log, creating the file with a
// frontmatter header when absent. Details are rendered as key=value pairs in
// the order given.
func (d *DayLog) Event(event string, details ...string) error {
	now := d.Now().UTC()
	today := now.Format("2006-01-02")
	path := filepath.Join(d.dir, today+".md")

	var pairs []string
	for i := 0; i+1 < len(details); i += 2 {
		pairs = append(pairs, details[i]+"="+details[i+1])
	}
	entry := fmt.Sprintf("- `%s` | **%s** | %s\n", now.Format("15:04:05"), event, strings.Join(pairs, ", "))

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		header := fmt.Sprintf("---\ndate: %s\ntype: daily_log\n---\n\n# Daily Log — %s\n\n", today, today)
		return os.WriteFile(path, []byte(header+entry), 0o644)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open day log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append day log: %w", err)
	}
	return nil
}
