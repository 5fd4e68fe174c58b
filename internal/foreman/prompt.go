package foreman

import (
	"strings"

	"github.com/colonyops/foreman/internal/core/vault"
	"github.com/colonyops/foreman/pkg/tmpl"
)

// CompletionMarker is the literal token in agent output that unconditionally
// signals task completion.
const CompletionMarker = "TASK_COMPLETE"

const skillPromptTmpl = `Read and follow the skill instructions in {{ .SkillPath }}.{{ if .Context }} Context: {{ .Context }}{{ end }}`

// skillPrompt builds the one-shot prompt for a skill dispatch.
func skillPrompt(v *vault.Vault, skill, contextNote string) string {
	return tmpl.MustRender(skillPromptTmpl, map[string]string{
		"SkillPath": v.SkillPath(skill),
		"Context":   contextNote,
	})
}

const taskPromptTmpl = `You are the AI Employee working in an Obsidian vault at {{ .VaultPath }}.
Your skills are defined in .claude/skills/ - read them for instructions.
Your rules are in Company_Handbook.md - always follow them.

## Task
{{ .Description }}
{{ if .Iterations }}
## Previous Iterations
This is iteration {{ .Iteration }} of {{ .MaxIterations }}. The task is NOT yet complete. Here is what was done so far:
{{ range .Iterations }}
### Iteration {{ .Number }}
Result: {{ if .Success }}success{{ else }}failed{{ end }}
Output summary: {{ trunc 300 .Summary }}
{{ end }}
## What to do now
Continue where the previous iteration left off. Do NOT repeat work that was already completed. Focus on the remaining steps.
{{ end }}
## Completion
When the task is fully complete:
1. Move the task file from /In_Progress/{{ .TaskFilename }} to /Done/
2. Include the string {{ .Marker }} in your final output
3. Update Dashboard.md with the results

If the task is NOT complete after this iteration, summarize what was done
and what still needs to be done. Do NOT output {{ .Marker }}.`

type taskPromptData struct {
	VaultPath     string
	Description   string
	Iteration     int
	MaxIterations int
	Iterations    []IterationRecord
	TaskFilename  string
	Marker        string
}

// taskPrompt builds the prompt for one task loop iteration, embedding the
// history of every prior iteration.
func taskPrompt(d taskPromptData) string {
	d.Marker = CompletionMarker
	return tmpl.MustRender(taskPromptTmpl, d)
}

// summarize extracts a concise summary from agent output: the first few
// substantive lines, skipping fences, frontmatter delimiters, and JSON noise.
func summarize(output string) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "(no output)"
	}

	var meaningful []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "{") || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "---") {
			continue
		}
		meaningful = append(meaningful, line)
		if len(meaningful) >= 5 {
			break
		}
	}

	if len(meaningful) == 0 {
		first := strings.SplitN(trimmed, "\n", 2)[0]
		if len(first) > 200 {
			first = first[:200]
		}
		return first
	}
	return strings.Join(meaningful, " | ")
}
