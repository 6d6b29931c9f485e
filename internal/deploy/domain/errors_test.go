package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cfg := NewConfigError("repo_url", "is required")
	fetch := NewFetchError("deadbeef", "/tmp/d", "resolving revision", errors.New("unknown revision"))
	env := NewEnvError("A", "has unsupported type []interface {}")

	if !IsConfigError(cfg) || IsConfigError(fetch) || IsConfigError(env) {
		t.Error("IsConfigError misclassified")
	}
	if !IsFetchError(fetch) || IsFetchError(cfg) || IsFetchError(env) {
		t.Error("IsFetchError misclassified")
	}
	if !IsEnvError(env) || IsEnvError(cfg) || IsEnvError(fetch) {
		t.Error("IsEnvError misclassified")
	}
}

func TestErrorKinds_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("fetching source: %w", NewFetchError("main", "", "cloning", errors.New("boom")))
	if !IsFetchError(err) {
		t.Error("IsFetchError should see through %w wrapping")
	}
}

func TestFetchError_MessageNamesContext(t *testing.T) {
	err := NewFetchError("deadbeef", "/tmp/d", "resolving revision", errors.New("unknown revision"))
	msg := err.Error()
	for _, want := range []string{"deadbeef", "/tmp/d", "resolving revision", "unknown revision"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}

func TestConfigError_MessageNamesField(t *testing.T) {
	msg := NewConfigError("local_dir", "is required").Error()
	if !strings.Contains(msg, "local_dir") {
		t.Errorf("error message %q should name the field", msg)
	}
}
