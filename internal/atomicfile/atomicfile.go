// Package atomicfile writes files so readers never see a partial write.
package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
)

// Write replaces path with data.
//
//   - Ensures the parent directory exists (0700).
//   - Writes to a temp file in the same directory, syncs, then renames.
//   - The final file has the given permissions.
func Write(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errors.New("path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Cleans up the temp file on error; a no-op after a successful rename.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
