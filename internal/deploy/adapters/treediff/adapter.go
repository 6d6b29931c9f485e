// Package treediff summarizes what a deployment changed by diffing content
// manifests of the target tree before and after the run.
package treediff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter implements ports.ChangeSummaryPort with path+sha256 manifests
// and a line-by-line unified diff.
type Adapter struct{}

// New creates a tree diff adapter.
func New() *Adapter {
	return &Adapter{}
}

// Manifest walks dir and returns one "path<TAB>sha256" line per file,
// sorted by path. A missing dir yields an empty manifest (first deploy).
func (a *Adapter) Manifest(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var lines []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil || d.IsDir() {
			return werr
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		sum, herr := hashFile(path)
		if herr != nil {
			return herr
		}
		lines = append(lines, rel+"\t"+sum)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building tree manifest: %w", err)
	}
	sort.Strings(lines)
	return lines, nil
}

// Summarize performs a unified diff between two manifests.
// An empty string means the deployment changed nothing.
func (a *Adapter) Summarize(fromLabel, toLabel string, before, after []string) string {
	ud := difflib.UnifiedDiff{
		A:        terminated(before),
		B:        terminated(after),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3, // Show 3 lines of context around changes
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("error computing summary: %s", err)
	}
	return strings.TrimSpace(text)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// terminated newline-terminates manifest lines the way difflib expects.
func terminated(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
