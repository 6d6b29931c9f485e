package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		want      domain.Descriptor
		wantErr   bool
		wantField string
	}{
		{
			name: "full descriptor",
			yaml: `repo_url: https://example.com/r.git
branch: main
commit_hash: ""
local_dir: /tmp/d
exclude_ext: .ipynb
env:
  A: "1"
`,
			want: domain.Descriptor{
				RepoURL:    "https://example.com/r.git",
				Branch:     "main",
				LocalDir:   "/tmp/d",
				ExcludeExt: []string{".ipynb"},
				Env:        map[string]any{"A": "1"},
			},
		},
		{
			name: "exclude_ext as list",
			yaml: `repo_url: https://example.com/r.git
local_dir: /tmp/d
exclude_ext: [".ipynb", ".pyc"]
`,
			want: domain.Descriptor{
				RepoURL:    "https://example.com/r.git",
				Branch:     "main", // defaulted
				LocalDir:   "/tmp/d",
				ExcludeExt: []string{".ipynb", ".pyc"},
			},
		},
		{
			name: "commit pin and readonly",
			yaml: `repo_url: https://example.com/r.git
commit_hash: deadbeef
local_dir: /tmp/d
readonly: true
`,
			want: domain.Descriptor{
				RepoURL:    "https://example.com/r.git",
				Branch:     "main",
				CommitHash: "deadbeef",
				LocalDir:   "/tmp/d",
				ReadOnly:   true,
			},
		},
		{
			name: "numeric env values",
			yaml: `repo_url: https://example.com/r.git
local_dir: /tmp/d
env:
  PORT: 8080
  RATIO: 0.5
`,
			want: domain.Descriptor{
				RepoURL:  "https://example.com/r.git",
				Branch:   "main",
				LocalDir: "/tmp/d",
				Env:      map[string]any{"PORT": 8080, "RATIO": 0.5},
			},
		},
		{
			name:      "missing repo_url",
			yaml:      "local_dir: /tmp/d\n",
			wantErr:   true,
			wantField: "repo_url",
		},
		{
			name:      "missing local_dir",
			yaml:      "repo_url: https://example.com/r.git\n",
			wantErr:   true,
			wantField: "local_dir",
		},
		{
			name:      "empty document",
			yaml:      "",
			wantErr:   true,
			wantField: "repo_url",
		},
		{
			name: "misnamed field rejected",
			yaml: `repo_url: https://example.com/r.git
local_dir: /tmp/d
exclude_extension: .ipynb
`,
			wantErr: true,
		},
		{
			name: "extension without dot rejected",
			yaml: `repo_url: https://example.com/r.git
local_dir: /tmp/d
exclude_ext: ipynb
`,
			wantErr:   true,
			wantField: "exclude_ext",
		},
		{
			name: "exclude_ext as mapping rejected",
			yaml: `repo_url: https://example.com/r.git
local_dir: /tmp/d
exclude_ext: {a: b}
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "repo_url: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() = nil error, want error")
				}
				if !domain.IsConfigError(err) {
					t.Errorf("Parse() returned %T (%v), want ConfigError", err, err)
				}
				if tt.wantField != "" {
					var ce *domain.ConfigError
					if errors.As(err, &ce) && ce.Field != tt.wantField {
						t.Errorf("ConfigError.Field = %q, want %q", ce.Field, tt.wantField)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yaml")
	content := `repo_url: https://example.com/r.git
local_dir: /tmp/d
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	desc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if desc.RepoURL != "https://example.com/r.git" {
		t.Errorf("RepoURL = %q", desc.RepoURL)
	}
	if desc.Branch != domain.DefaultBranch {
		t.Errorf("Branch = %q, want default %q", desc.Branch, domain.DefaultBranch)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
