// Package tmpl provides template rendering for agent prompts and vault
// documents.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// truncate returns s cut to at most n bytes. Used to keep iteration summaries
// and error excerpts from flooding prompts and task files.
func truncate(n int, s string) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var funcs = template.FuncMap{
	"join":  strings.Join,
	"trunc": truncate,
	"lower": strings.ToLower,
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - join: Join a string slice with a separator
//   - trunc: Truncate a string to at most N bytes (e.g. trunc 200 .Summary)
//   - lower: Lowercase a string
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// MustRender renders a template that is defined at compile time and panics on
// failure. Use only for built-in templates shipped with the binary.
func MustRender(tmpl string, data any) string {
	out, err := Render(tmpl, data)
	if err != nil {
		panic(err)
	}
	return out
}
