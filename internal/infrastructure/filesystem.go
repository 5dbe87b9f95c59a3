package infrastructure

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// NewFilesystem returns the filesystem shared by the config loader and the
// file cache store.
func NewFilesystem() afero.Fs {
	return afero.NewOsFs()
}

// ensureDir creates dir when missing and rejects paths that exist but are
// not directories.
func ensureDir(fs afero.Fs, dir string) error {
	info, err := fs.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	case os.IsNotExist(err):
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
}
