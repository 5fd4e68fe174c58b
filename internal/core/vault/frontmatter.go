package vault

import (
	"bufio"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds metadata parsed from a vault document's YAML front matter.
// All fields are best-effort: missing or malformed frontmatter produces zero
// values.
type Frontmatter struct {
	Type             string `yaml:"type"`
	Status           string `yaml:"status"`
	Severity         string `yaml:"severity"`
	TaskID           string `yaml:"task_id"`
	Description      string `yaml:"description"`
	Created          string `yaml:"created"`
	LastUpdated      string `yaml:"last_updated"`
	MaxIterations    int    `yaml:"max_iterations"`
	CurrentIteration int    `yaml:"current_iteration"`
	DryRun           bool   `yaml:"dry_run"`
}

// ParseFrontmatter extracts YAML front matter from document content.
// Front matter must be delimited by "---" on its own line at the start of the
// file. Returns zero-value Frontmatter if no valid front matter is found.
func ParseFrontmatter(content string) Frontmatter {
	scanner := bufio.NewScanner(strings.NewReader(content))

	// First line must be "---"
	if !scanner.Scan() || !isDelimiter(scanner.Text()) {
		return Frontmatter{}
	}

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if isDelimiter(line) {
			break
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return Frontmatter{}
	}

	var fm Frontmatter
	_ = yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &fm)

	return fm
}

// isDelimiter matches the frontmatter fence at column zero only. Indented
// dashes can appear inside YAML block scalars and are not a fence.
func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == "---"
}

// ReadItemType reads a file's frontmatter and returns its type tag, or
// "unknown" when the file is unreadable or carries no type.
func ReadItemType(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	fm := ParseFrontmatter(string(data))
	if fm.Type == "" {
		return "unknown"
	}
	return fm.Type
}
