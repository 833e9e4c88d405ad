// Package fileutil provides the file-writing primitives the conversion
// pipeline relies on: atomic output publication and collision-free naming.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteFileAtomic writes data to path so that readers of the destination
// directory never observe a partial file. The data lands in a temporary file
// in the same directory (rename is only atomic within a filesystem) and is
// renamed into place after a successful sync.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// UniquePath returns base if nothing exists there, otherwise the first
// "stem_N.ext" variant (N = 1, 2, ...) with no collision.
func UniquePath(base string) (string, error) {
	if _, err := os.Lstat(base); err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return "", fmt.Errorf("stat %s: %w", base, err)
	}

	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)

	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
}
