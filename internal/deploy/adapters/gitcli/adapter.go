// Package gitcli implements the source fetcher by shelling out to git.
// The repository is cloned once into a cache directory next to the target;
// later runs fetch and check out the resolved revision, then stage a
// filtered snapshot and swap it into local_dir.
package gitcli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/staging"
	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// Adapter implements ports.SourceFetcherPort using the git CLI.
type Adapter struct {
	logger *slog.Logger
}

// New creates a git CLI fetcher.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Adapter{logger: logger}
}

// Fetch materializes the descriptor's resolved revision at local_dir.
// Re-running with the same resolved revision leaves the tree byte-identical.
func (a *Adapter) Fetch(ctx context.Context, desc domain.Descriptor) (domain.Snapshot, error) {
	if err := staging.Probe(desc.LocalDir); err != nil {
		return domain.Snapshot{}, domain.NewFetchError("", desc.LocalDir, "target not writable", err)
	}

	cache := cacheDir(desc.LocalDir)
	if _, err := os.Stat(filepath.Join(cache, ".git")); err == nil {
		a.logger.Info("cache exists, fetching latest", "cache", cache)
		if out, err := a.git(ctx, cache, "fetch", "--prune", "origin"); err != nil {
			return domain.Snapshot{}, domain.NewFetchError(desc.Ref(), cache,
				"fetching from "+desc.RepoURL, gitErr(err, out))
		}
	} else {
		a.logger.Info("cloning repository", "repoURL", desc.RepoURL, "cache", cache)
		if out, err := a.git(ctx, "", "clone", desc.RepoURL, cache); err != nil {
			return domain.Snapshot{}, domain.NewFetchError(desc.Ref(), cache,
				"cloning "+desc.RepoURL, gitErr(err, out))
		}
	}

	rev, err := a.resolve(ctx, cache, desc)
	if err != nil {
		return domain.Snapshot{}, err
	}
	a.logger.Info("revision resolved", "ref", desc.Ref(), "revision", rev)

	if out, err := a.git(ctx, cache, "checkout", "--force", "--detach", rev); err != nil {
		return domain.Snapshot{}, domain.NewFetchError(rev, cache, "checking out revision", gitErr(err, out))
	}

	stage := staging.Dir(desc.LocalDir)
	if err := os.RemoveAll(stage); err != nil {
		return domain.Snapshot{}, domain.NewFetchError(rev, stage, "clearing stage", err)
	}
	copied, excluded, err := copyTree(cache, stage, desc)
	if err != nil {
		_ = os.RemoveAll(stage)
		return domain.Snapshot{}, domain.NewFetchError(rev, stage, "staging snapshot", err)
	}
	if err := staging.Swap(stage, desc.LocalDir); err != nil {
		_ = os.RemoveAll(stage)
		return domain.Snapshot{}, domain.NewFetchError(rev, desc.LocalDir, "activating snapshot", err)
	}

	return domain.Snapshot{Revision: rev, FileCount: copied, ExcludedCount: excluded}, nil
}

// resolve turns the descriptor's ref into a full commit SHA. A commit pin
// is verified as-is; otherwise the fetched branch tip is used.
func (a *Adapter) resolve(ctx context.Context, cache string, desc domain.Descriptor) (string, error) {
	target := desc.CommitHash
	if !desc.Pinned() {
		target = "origin/" + desc.Branch
	}
	out, err := a.git(ctx, cache, "rev-parse", "--verify", target+"^{commit}")
	if err != nil {
		return "", domain.NewFetchError(desc.Ref(), "", "resolving revision", gitErr(err, out))
	}
	return strings.TrimSpace(string(out)), nil
}

func (a *Adapter) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	//nolint:gosec // G204: descriptor values are trusted operator config, not user input
	cmd := exec.CommandContext(ctx, "git", args...)
	return cmd.CombinedOutput()
}

func gitErr(err error, output []byte) error {
	out := strings.TrimSpace(string(output))
	if out == "" {
		return err
	}
	return fmt.Errorf("%w\noutput: %s", err, out)
}

// cacheDir returns the clone location for a target: a dot-prefixed sibling
// so re-deploys fetch instead of recloning.
func cacheDir(localDir string) string {
	localDir = filepath.Clean(localDir)
	return filepath.Join(filepath.Dir(localDir), "."+filepath.Base(localDir)+".git-cache")
}

// copyTree copies the checked-out work tree into the stage directory,
// skipping .git and any file carrying an excluded extension.
func copyTree(src, dst string, desc domain.Descriptor) (copied, excluded int, err error) {
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		if desc.Excluded(d.Name()) {
			excluded++
			return nil
		}
		if cerr := copyFile(path, filepath.Join(dst, rel)); cerr != nil {
			return cerr
		}
		copied++
		return nil
	})
	return copied, excluded, err
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
