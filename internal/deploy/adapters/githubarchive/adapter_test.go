package githubarchive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

const testSHA = "4fa21b0c9d3e4fa21b0c9d3e4fa21b0c9d3e4fa2"

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{
			Name: "acme-widgets-" + testSHA[:7] + "/" + name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	return buf.Bytes()
}

// newFakeGitHub serves the three endpoints the adapter touches: ref
// resolution, the archive link redirect, and the tarball itself.
func newFakeGitHub(t *testing.T, tarball []byte) (*httptest.Server, *gogithub.Client) {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("GET /repos/acme/widgets/commits/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.github.sha")
		fmt.Fprint(w, testSHA)
	})
	mux.HandleFunc("GET /repos/acme/widgets/tarball/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/archive.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("GET /archive.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(tarball)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := gogithub.NewClient(nil)
	base, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("parsing base URL: %v", err)
	}
	client.BaseURL = base
	return server, client
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFetch_ExtractsFilteredTarball(t *testing.T) {
	tarball := buildTarball(t, map[string]string{
		"main.py":        "print('hi')\n",
		"notebook.ipynb": "{}\n",
		"docs/guide.md":  "# guide\n",
	})
	_, client := newFakeGitHub(t, tarball)

	localDir := filepath.Join(t.TempDir(), "deploy")
	desc := domain.Descriptor{
		RepoURL:    "https://github.com/acme/widgets.git",
		Branch:     "main",
		LocalDir:   localDir,
		ExcludeExt: []string{".ipynb"},
	}

	snap, err := New(client, testLogger()).Fetch(context.Background(), desc)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if snap.Revision != testSHA {
		t.Errorf("Revision = %q, want %q", snap.Revision, testSHA)
	}
	if snap.FileCount != 2 || snap.ExcludedCount != 1 {
		t.Errorf("counts = (%d, %d), want (2, 1)", snap.FileCount, snap.ExcludedCount)
	}
	if _, err := os.Stat(filepath.Join(localDir, "notebook.ipynb")); !os.IsNotExist(err) {
		t.Error("excluded notebook was deployed")
	}
	data, err := os.ReadFile(filepath.Join(localDir, "docs", "guide.md"))
	if err != nil || string(data) != "# guide\n" {
		t.Errorf("nested file = %q, %v", data, err)
	}
}

func TestFetch_NonGitHubRemote(t *testing.T) {
	_, client := newFakeGitHub(t, nil)

	desc := domain.Descriptor{
		RepoURL:  "https://example.com/r.git",
		Branch:   "main",
		LocalDir: filepath.Join(t.TempDir(), "deploy"),
	}
	if _, err := New(client, testLogger()).Fetch(context.Background(), desc); !domain.IsFetchError(err) {
		t.Errorf("err = %v, want FetchError", err)
	}
}

func TestExtractTarGz_RejectsZipSlip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "evil"
	if err := tw.WriteHeader(&tar.Header{
		Name: "repo-abc/../../evil.txt",
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	_ = tw.Close()
	_ = gz.Close()

	dest := filepath.Join(t.TempDir(), "stage")
	if _, _, err := extractTarGz(&buf, dest, domain.Descriptor{}); err == nil {
		t.Error("extraction should reject paths escaping the stage")
	}
}
