// Package envfile materializes the descriptor's env mapping as a .env file
// inside the deployed tree.
package envfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// FileName is the materialization target within local_dir.
const FileName = ".env"

// Adapter implements ports.EnvWriterPort by writing KEY=value lines.
type Adapter struct{}

// New creates an env file writer.
func New() *Adapter {
	return &Adapter{}
}

// Apply writes the env mapping to .env in dir, keys sorted, replacing any
// previous materialization via a temp-file rename. An empty mapping
// removes a stale .env so old values never leak into the new deployment.
func (a *Adapter) Apply(_ context.Context, dir string, env map[string]any) error {
	path := filepath.Join(dir, FileName)
	if len(env) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stale env file: %w", err)
		}
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		val, err := formatValue(env[k])
		if err != nil {
			return domain.NewEnvError(k, err.Error())
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(val)
		b.WriteString("\n")
	}

	// Values may hold secrets: temp files from CreateTemp are 0600 and the
	// rename keeps a concurrent reader from seeing a torn file.
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return fmt.Errorf("creating env temp file: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing env file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("closing env file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("activating env file: %w", err)
	}
	return nil
}

// formatValue serializes a descriptor env value. Strings and numbers (and
// bools) are supported; anything else cannot be represented as a single
// env line.
func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, "\n\r") {
			return "", fmt.Errorf("has a multi-line value")
		}
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("has unsupported type %T", v)
	}
}
