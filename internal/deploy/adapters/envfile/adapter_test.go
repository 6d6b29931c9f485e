package envfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

func TestApply_WritesSortedEntries(t *testing.T) {
	dir := t.TempDir()

	err := New().Apply(context.Background(), dir, map[string]any{
		"B_PORT":  8080,
		"A_NAME":  "svc",
		"C_RATIO": 0.5,
		"D_FLAG":  true,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("reading env file: %v", err)
	}
	want := "A_NAME=svc\nB_PORT=8080\nC_RATIO=0.5\nD_FLAG=true\n"
	if string(data) != want {
		t.Errorf("env file = %q, want %q", data, want)
	}
}

func TestApply_OverwritesPrevious(t *testing.T) {
	dir := t.TempDir()
	a := New()

	if err := a.Apply(context.Background(), dir, map[string]any{"A": "1", "OLD": "x"}); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := a.Apply(context.Background(), dir, map[string]any{"A": "2"}); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("reading env file: %v", err)
	}
	if string(data) != "A=2\n" {
		t.Errorf("env file = %q, want %q", data, "A=2\n")
	}
}

func TestApply_EmptyMappingRemovesStaleFile(t *testing.T) {
	dir := t.TempDir()
	a := New()

	if err := a.Apply(context.Background(), dir, map[string]any{"A": "1"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := a.Apply(context.Background(), dir, nil); err != nil {
		t.Fatalf("Apply with empty env: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("stale .env survived an empty env mapping")
	}

	// No file, empty mapping: still fine.
	if err := a.Apply(context.Background(), dir, map[string]any{}); err != nil {
		t.Errorf("Apply on a clean dir: %v", err)
	}
}

func TestApply_UnsupportedValueType(t *testing.T) {
	dir := t.TempDir()

	err := New().Apply(context.Background(), dir, map[string]any{
		"A": "fine",
		"B": []any{"not", "fine"},
	})
	if err == nil {
		t.Fatal("Apply should reject a sequence value")
	}
	if !domain.IsEnvError(err) {
		t.Errorf("err = %T (%v), want EnvError", err, err)
	}
	ee := err.(*domain.EnvError)
	if ee.Key != "B" {
		t.Errorf("EnvError.Key = %q, want B", ee.Key)
	}
	// Nothing half-written.
	if _, statErr := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(statErr) {
		t.Error("failed Apply left an env file behind")
	}
}

func TestApply_MultilineValueRejected(t *testing.T) {
	err := New().Apply(context.Background(), t.TempDir(), map[string]any{"A": "x\ny"})
	if !domain.IsEnvError(err) {
		t.Errorf("err = %v, want EnvError", err)
	}
}

func TestApply_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	if err := New().Apply(context.Background(), dir, map[string]any{"SECRET": "s3cr3t"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("env file mode = %o, want 600", perm)
	}
}
