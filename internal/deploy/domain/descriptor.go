package domain

import "strings"

// DefaultBranch is fetched when a descriptor names no branch.
const DefaultBranch = "main"

// Descriptor is the parsed, validated form of deployment.yaml. It is
// immutable for the duration of one deployment run; rollback is a fresh
// run with a different CommitHash.
type Descriptor struct {
	RepoURL    string         // fetchable repository reference, required
	Branch     string         // branch to fetch when CommitHash is empty
	CommitHash string         // optional exact revision pin, overrides Branch
	LocalDir   string         // deployment target directory, required
	ExcludeExt []string       // file extensions omitted from the snapshot
	Env        map[string]any // variables materialized for the artifact
	ReadOnly   bool           // lock deployed files after a successful run
}

// Normalize applies descriptor defaults: an empty Branch becomes
// DefaultBranch. It does not touch required fields.
func (d *Descriptor) Normalize() {
	if d.Branch == "" {
		d.Branch = DefaultBranch
	}
}

// Validate checks the descriptor invariants. It returns a *ConfigError
// naming the first offending field.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.RepoURL) == "" {
		return NewConfigError("repo_url", "is required")
	}
	if strings.TrimSpace(d.LocalDir) == "" {
		return NewConfigError("local_dir", "is required")
	}
	if d.Branch == "" && d.CommitHash == "" {
		return NewConfigError("branch", "is required when commit_hash is empty")
	}
	for _, ext := range d.ExcludeExt {
		if !strings.HasPrefix(ext, ".") {
			return NewConfigError("exclude_ext", "entry "+ext+" must begin with a dot")
		}
	}
	return nil
}

// Pinned reports whether the descriptor pins an exact revision.
// commit_hash: "" means "no pin" (deploy the branch tip).
func (d Descriptor) Pinned() bool {
	return d.CommitHash != ""
}

// Ref returns the revision reference to resolve: the commit pin when set,
// otherwise the branch.
func (d Descriptor) Ref() string {
	if d.Pinned() {
		return d.CommitHash
	}
	return d.Branch
}

// Excluded reports whether a file name carries one of the descriptor's
// excluded extensions.
func (d Descriptor) Excluded(name string) bool {
	for _, ext := range d.ExcludeExt {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
