package ports

import (
	"context"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// SourceFetcherPort abstracts materializing the repository at the resolved
// revision into the descriptor's local_dir, excluded extensions filtered
// out. Implementations must be idempotent: re-fetching the same resolved
// revision leaves the target tree byte-identical.
type SourceFetcherPort interface {
	Fetch(ctx context.Context, desc domain.Descriptor) (domain.Snapshot, error)
}

// EnvWriterPort abstracts materializing the env mapping into the deployed
// tree. Apply overwrites any previous materialization.
type EnvWriterPort interface {
	Apply(ctx context.Context, dir string, env map[string]any) error
}

// PermissionsPort abstracts locking a deployed tree read-only and
// restoring it to writable before the next overwrite.
type PermissionsPort interface {
	Lock(dir string) error
	Unlock(dir string) error
}

// ChangeSummaryPort abstracts computing what a deployment changed in the
// target tree, for the run report.
type ChangeSummaryPort interface {
	// Manifest captures the tree's content as sorted manifest lines.
	// A missing dir yields an empty manifest.
	Manifest(dir string) ([]string, error)
	// Summarize diffs two manifests; empty string means no changes.
	Summarize(fromLabel, toLabel string, before, after []string) string
}
