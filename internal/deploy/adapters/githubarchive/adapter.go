// Package githubarchive implements the source fetcher for github.com
// remotes by resolving the ref through the GitHub API and extracting a
// repository tarball, avoiding a local git clone entirely.
package githubarchive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/shipdeck/internal/deploy/adapters/staging"
	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// Adapter implements ports.SourceFetcherPort via GitHub repo tarballs.
type Adapter struct {
	client *gogithub.Client
	logger *slog.Logger
}

// New creates a GitHub archive fetcher.
func New(client *gogithub.Client, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Adapter{client: client, logger: logger}
}

// Fetch resolves the descriptor's ref to a commit SHA, downloads the
// tarball at that SHA, and swaps the filtered extraction into local_dir.
func (a *Adapter) Fetch(ctx context.Context, desc domain.Descriptor) (domain.Snapshot, error) {
	owner, repo, ok := domain.ParseGitHubRemote(desc.RepoURL)
	if !ok {
		return domain.Snapshot{}, domain.NewFetchError(desc.Ref(), "",
			desc.RepoURL+" is not a github.com remote", nil)
	}
	if err := staging.Probe(desc.LocalDir); err != nil {
		return domain.Snapshot{}, domain.NewFetchError("", desc.LocalDir, "target not writable", err)
	}

	// Pin or branch, the API resolves both to a full SHA; archiving at the
	// SHA (not the ref) keeps the download and the report consistent even
	// if the branch moves mid-run.
	sha, _, err := a.client.Repositories.GetCommitSHA1(ctx, owner, repo, desc.Ref(), "")
	if err != nil {
		return domain.Snapshot{}, domain.NewFetchError(desc.Ref(), "", "resolving revision via api", err)
	}
	a.logger.Info("revision resolved", "ref", desc.Ref(), "revision", sha)

	archiveURL, _, err := a.client.Repositories.GetArchiveLink(ctx, owner, repo, gogithub.Tarball,
		&gogithub.RepositoryContentGetOptions{Ref: sha}, 10)
	if err != nil {
		return domain.Snapshot{}, domain.NewFetchError(sha, "", "getting archive link", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), nil)
	if err != nil {
		return domain.Snapshot{}, domain.NewFetchError(sha, "", "creating archive request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, domain.NewFetchError(sha, "", "downloading archive", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Snapshot{}, domain.NewFetchError(sha, "",
			fmt.Sprintf("unexpected status downloading archive: %d", resp.StatusCode), nil)
	}

	stage := staging.Dir(desc.LocalDir)
	if err := os.RemoveAll(stage); err != nil {
		return domain.Snapshot{}, domain.NewFetchError(sha, stage, "clearing stage", err)
	}
	copied, excluded, err := extractTarGz(resp.Body, stage, desc)
	if err != nil {
		_ = os.RemoveAll(stage)
		return domain.Snapshot{}, domain.NewFetchError(sha, stage, "extracting archive", err)
	}
	if err := staging.Swap(stage, desc.LocalDir); err != nil {
		_ = os.RemoveAll(stage)
		return domain.Snapshot{}, domain.NewFetchError(sha, desc.LocalDir, "activating snapshot", err)
	}

	return domain.Snapshot{Revision: sha, FileCount: copied, ExcludedCount: excluded}, nil
}

// extractTarGz unpacks a GitHub repo tarball into dest. GitHub archives
// wrap everything in a single top-level directory (owner-repo-sha/), which
// is stripped; excluded extensions are filtered during extraction.
func extractTarGz(r io.Reader, dest string, desc domain.Descriptor) (copied, excluded int, err error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, 0, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, 0, fmt.Errorf("creating stage: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return copied, excluded, fmt.Errorf("reading tar entry: %w", err)
		}

		// Strip the top-level directory.
		parts := strings.SplitN(header.Name, "/", 2)
		if len(parts) < 2 || parts[1] == "" {
			continue
		}
		rel := parts[1]

		target := filepath.Join(dest, rel)

		// Guard against zip-slip
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dest)+string(os.PathSeparator)) {
			return copied, excluded, fmt.Errorf("illegal file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return copied, excluded, fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			if desc.Excluded(filepath.Base(rel)) {
				excluded++
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return copied, excluded, fmt.Errorf("creating parent directory: %w", err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return copied, excluded, fmt.Errorf("creating file: %w", err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return copied, excluded, fmt.Errorf("writing file: %w", err)
			}
			f.Close()
			copied++
		}
	}
	return copied, excluded, nil
}
