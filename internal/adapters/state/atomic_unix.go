//go:build !windows

package state

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// AtomicWriteFile writes data so that readers observe either the old or the
// new content, never a partial file. Parent directories are created.
// On Unix systems, this uses renameio for atomic writes.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}
