// Package perms locks a deployed tree read-only after a successful run and
// restores it to writable before the next overwrite.
package perms

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/envfile"
)

// Adapter implements ports.PermissionsPort with plain chmod walks.
type Adapter struct {
	logger *slog.Logger
}

// New creates a permissions adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Adapter{logger: logger}
}

// Lock sets every deployed file read-only. The env file stays writable so
// the next materialization can overwrite it.
func (a *Adapter) Lock(dir string) error {
	return a.chmodFiles(dir, 0o444, true)
}

// Unlock restores owner-writable permissions on every file in dir.
// A missing dir is a no-op (nothing deployed yet).
func (a *Adapter) Unlock(dir string) error {
	return a.chmodFiles(dir, 0o644, false)
}

func (a *Adapter) chmodFiles(dir string, mode os.FileMode, skipEnv bool) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil || d.IsDir() {
			return werr
		}
		if skipEnv && d.Name() == envfile.FileName {
			return nil
		}
		if err := os.Chmod(path, mode); err != nil {
			return err
		}
		a.logger.Debug("permissions set", "path", path, "mode", mode.String())
		return nil
	})
}
