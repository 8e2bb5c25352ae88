// Package storage provides atomic file writes: content lands at a
// temporary path and is renamed into place, so a reader never observes a
// partially written file.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partSuffix marks in-progress downloads. Leftover .part files from a
// crashed run are safe to delete.
const partSuffix = ".part"

// WriteAtomic streams r to path via a temporary sibling file. On any
// failure the temporary artifact is removed and the final path is left
// untouched.
func WriteAtomic(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("storage: failed to create directory: %w", err)
	}

	tmp := path + partSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("storage: failed to create temp file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return n, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("storage: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return n, fmt.Errorf("storage: failed to promote temp file: %w", err)
	}
	return n, nil
}

// SaveAtomic writes a byte slice atomically. Overwrites any existing file
// at path.
func SaveAtomic(path string, content []byte) error {
	tmp := path + partSuffix
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("storage: failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: failed to promote temp file: %w", err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
