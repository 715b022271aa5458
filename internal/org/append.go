package org

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Append adds entries to the outline at path, separated by blank lines and
// followed by one, in a single write. The file is created if missing.
func Append(path string, entries []string) (err error) {
	if len(entries) == 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // outline is meant to be readable
	if err != nil {
		return fmt.Errorf("open outline: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close outline: %w", cerr)
		}
	}()

	text := strings.Join(entries, "\n\n") + "\n\n"
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("append outline: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync outline: %w", err)
	}
	return nil
}
