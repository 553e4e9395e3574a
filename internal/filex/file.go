// Package filex holds small filesystem helpers for the database files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) when absent. Relative paths are
// resolved against the working directory; the resolved absolute path is
// returned. The database lives in user data, hence the restrictive mode.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	return abs, nil
}

// RemoveDatabase deletes a SQLite database file together with its WAL
// sidecar files. Missing files are not an error: the point is the end
// state, not the removal itself.
func RemoveDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
