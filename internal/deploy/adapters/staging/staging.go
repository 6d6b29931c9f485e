// Package staging provides the stage-then-swap filesystem dance shared by
// the source fetchers: a snapshot is built next to the target directory and
// renamed into place, so a failed fetch never leaves a half-written tree
// behind as the current deployment.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir returns the staging path for a deployment target.
func Dir(localDir string) string {
	return filepath.Clean(localDir) + ".stage"
}

// Probe verifies the deployment target is writable: its parent directory
// exists (creating it if needed) and accepts new files.
func Probe(localDir string) error {
	parent := filepath.Dir(filepath.Clean(localDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	f, err := os.CreateTemp(parent, ".shipdeck-probe-*")
	if err != nil {
		return fmt.Errorf("target parent not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Swap replaces localDir with the staged tree. The previous tree is moved
// aside first and removed only after the stage is in place; on a rename
// failure the previous tree is restored.
func Swap(stage, localDir string) error {
	localDir = filepath.Clean(localDir)
	old := localDir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("clearing previous swap residue: %w", err)
	}

	hadPrevious := false
	if _, err := os.Stat(localDir); err == nil {
		hadPrevious = true
		if err := os.Rename(localDir, old); err != nil {
			return fmt.Errorf("moving previous tree aside: %w", err)
		}
	}

	if err := os.Rename(stage, localDir); err != nil {
		if hadPrevious {
			_ = os.Rename(old, localDir)
		}
		return fmt.Errorf("moving staged tree into place: %w", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("removing previous tree: %w", err)
		}
	}
	return nil
}
