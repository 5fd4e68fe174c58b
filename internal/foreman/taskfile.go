package foreman

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/foreman/internal/core/vault"
	"github.com/colonyops/foreman/pkg/tmpl"
)

// Task file statuses as written into frontmatter.
const (
	TaskStatusInProgress            = "in_progress"
	TaskStatusCompleted             = "completed"
	TaskStatusInterrupted           = "interrupted"
	TaskStatusMaxIterationsExceeded = "max_iterations_exceeded"
)

// IterationRecord is one loop iteration's outcome, embedded in both the task
// file and the follow-up prompts. Summary is truncated; OutputLen preserves
// the raw output size.
type IterationRecord struct {
	Number    int
	Timestamp time.Time
	Success   bool
	Summary   string
	Duration  time.Duration
	OutputLen int
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeTaskName derives a filename fragment from a task description:
// unsafe characters stripped, whitespace collapsed to underscores, capped at
// 40 characters.
func sanitizeTaskName(description string) string {
	s := unsafeFilenameChars.ReplaceAllString(description, "")
	s = strings.Join(strings.Fields(s), "_")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "task"
	}
	return s
}

// taskFrontmatter is serialized with yaml.Marshal so descriptions containing
// newlines, colons, or delimiter lines survive the round trip intact.
type taskFrontmatter struct {
	Type             string `yaml:"type"`
	Status           string `yaml:"status"`
	TaskID           string `yaml:"task_id"`
	Description      string `yaml:"description"`
	Created          string `yaml:"created"`
	LastUpdated      string `yaml:"last_updated"`
	MaxIterations    int    `yaml:"max_iterations"`
	CurrentIteration int    `yaml:"current_iteration"`
	DryRun           bool   `yaml:"dry_run"`
}

const taskBodyTmpl = `# Task: {{ .Description }}

## Iterations
{{ range .Iterations }}
### Iteration {{ .Number }}
- Time: {{ .Timestamp.Format "2006-01-02T15:04:05Z" }}
- Result: {{ if .Success }}success{{ else }}failed{{ end }}
- Duration: {{ .Duration }} ({{ .OutputLen }} bytes of output)
- Summary: {{ trunc 200 .Summary }}
{{ else }}
_No iterations yet._
{{ end }}`

// TaskFile is the durable record of a task loop run, living in In_Progress
// while active and relocated to Done on completion. The file is rewritten in
// full after every iteration so a crash loses at most one iteration's record.
type TaskFile struct {
	v *vault.Vault

	Name          string
	TaskID        string
	Description   string
	Status        string
	MaxIterations int
	Iterations    []IterationRecord
	DryRun        bool
	created       time.Time

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewTaskFile creates the task record in In_Progress. The filename embeds a
// sanitized description slug and a creation timestamp so concurrent tasks
// never collide.
func NewTaskFile(v *vault.Vault, description string, maxIterations int, dryRun bool, now time.Time) (*TaskFile, error) {
	utc := now.UTC()
	slug := sanitizeTaskName(description)
	name := fmt.Sprintf("TASK_%s_%s.md", slug, utc.Format("20060102_150405"))

	tf := &TaskFile{
		v:             v,
		Name:          name,
		TaskID:        slug + "_" + utc.Format("20060102_150405"),
		Description:   description,
		Status:        TaskStatusInProgress,
		MaxIterations: maxIterations,
		DryRun:        dryRun,
		created:       utc,
		Now:           time.Now,
	}
	if err := tf.write(tf.Path()); err != nil {
		return nil, fmt.Errorf("create task file: %w", err)
	}
	return tf, nil
}

// Path is the task file's current location. Completed tasks live in Done,
// everything else in In_Progress.
func (tf *TaskFile) Path() string {
	if tf.Status == TaskStatusCompleted {
		return filepath.Join(tf.v.Done(), tf.Name)
	}
	return filepath.Join(tf.v.InProgress(), tf.Name)
}

// AppendIteration records an iteration's outcome and rewrites the file.
func (tf *TaskFile) AppendIteration(rec IterationRecord) error {
	tf.Iterations = append(tf.Iterations, rec)
	return tf.write(tf.Path())
}

// SetStatus updates the task status and rewrites the file. Transitioning to
// completed moves the file from In_Progress to Done; if the agent already
// moved it there itself, the relocation is a no-op.
func (tf *TaskFile) SetStatus(status string) error {
	oldPath := tf.Path()
	tf.Status = status
	newPath := tf.Path()

	if newPath != oldPath {
		if _, err := os.Stat(oldPath); err == nil {
			if err := os.Rename(oldPath, newPath); err != nil {
				return fmt.Errorf("relocate task file: %w", err)
			}
		}
	}
	return tf.write(newPath)
}

// InDone reports whether the file currently exists in the Done folder, which
// the agent may have moved it to directly.
func (tf *TaskFile) InDone() bool {
	_, err := os.Stat(filepath.Join(tf.v.Done(), tf.Name))
	return err == nil
}

func (tf *TaskFile) write(path string) error {
	fm, err := yaml.Marshal(taskFrontmatter{
		Type:             "task",
		Status:           tf.Status,
		TaskID:           tf.TaskID,
		Description:      tf.Description,
		Created:          tf.created.Format(time.RFC3339),
		LastUpdated:      tf.Now().UTC().Format(time.RFC3339),
		MaxIterations:    tf.MaxIterations,
		CurrentIteration: len(tf.Iterations),
		DryRun:           tf.DryRun,
	})
	if err != nil {
		return fmt.Errorf("marshal frontmatter: %w", err)
	}

	body := tmpl.MustRender(taskBodyTmpl, map[string]any{
		"Description": tf.Description,
		"Iterations":  tf.Iterations,
	})
	content := "---\n" + string(fm) + "---\n\n" + body

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
