// Package export writes collected links to a plain-text file.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Join renders urls one per line with no trailing separator.
func Join(urls []string) string {
	return strings.Join(urls, "\n")
}

// Write saves urls under dir/name and returns the file's path. The content
// goes to a temporary file that is closed and renamed into place, so a
// reader never sees a half-written list and no handle outlives the call.
// An empty list produces an empty file.
func Write(dir, name string, urls []string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("export: invalid file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("export: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(Join(urls)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("export: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("export: chmod: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}
	return path, nil
}

// ReadLinks parses a link list written by Write, or any newline-separated
// file, skipping blank lines and surrounding whitespace.
func ReadLinks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
