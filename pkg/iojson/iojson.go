// Package iojson provides JSON file and stdout helpers for snapshot-style
// documents written for external monitoring.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile marshals obj with indentation and writes it to path, creating
// parent directories as needed. The write replaces any previous contents.
func WriteFile(path string, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	if err := os.WriteFile(path, append(bits, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadFile reads and decodes a JSON document from path.
func ReadFile[T any](path string) (T, error) {
	var obj T

	f, err := os.Open(path)
	if err != nil {
		return obj, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(&obj); err != nil {
		return obj, fmt.Errorf("decode JSON: %w", err)
	}
	return obj, nil
}

// WriteWith marshals obj with indentation to w, reporting marshal failures
// on ew as a JSON error document.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		msgBytes, _ := json.Marshal(err.Error())
		_, werr := fmt.Fprintf(ew, `{"message":"error marshaling in iojson.Write","data":{"json_error":%s}}%s`, msgBytes, "\n")
		return werr
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// Write calls [WriteWith] with [os.Stdout] and [os.Stderr].
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}
