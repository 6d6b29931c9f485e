// Package descriptor loads deployment.yaml into a validated domain.Descriptor.
package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/shipdeck/internal/deploy/domain"
)

// DefaultPath is the fixed relative location the one-shot deployer reads.
const DefaultPath = "deployment.yaml"

// rawDescriptor mirrors the YAML schema before validation. Fields are
// enumerated (with KnownFields) so a misnamed key fails at load time
// instead of silently deploying with defaults.
type rawDescriptor struct {
	RepoURL    string         `yaml:"repo_url"`
	Branch     string         `yaml:"branch"`
	CommitHash string         `yaml:"commit_hash"`
	LocalDir   string         `yaml:"local_dir"`
	ExcludeExt extList        `yaml:"exclude_ext"`
	Env        map[string]any `yaml:"env"`
	ReadOnly   bool           `yaml:"readonly"`
}

// extList accepts either a single scalar extension or a sequence.
type extList []string

func (e *extList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*e = extList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := value.Decode(&ss); err != nil {
			return err
		}
		*e = extList(ss)
		return nil
	default:
		return errors.New("exclude_ext must be a string or a list of strings")
	}
}

// Load reads, parses, and validates the descriptor file at path.
// Missing or invalid fields surface as *domain.ConfigError.
func Load(path string) (domain.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("reading descriptor %s: %w", path, err)
	}
	desc, err := Parse(data)
	if err != nil {
		return domain.Descriptor{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return desc, nil
}

// Parse decodes and validates a descriptor document.
func Parse(data []byte) (domain.Descriptor, error) {
	var raw rawDescriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return domain.Descriptor{}, domain.NewConfigError("(document)", err.Error())
	}

	desc := domain.Descriptor{
		RepoURL:    raw.RepoURL,
		Branch:     raw.Branch,
		CommitHash: raw.CommitHash,
		LocalDir:   raw.LocalDir,
		ExcludeExt: raw.ExcludeExt,
		Env:        raw.Env,
		ReadOnly:   raw.ReadOnly,
	}
	desc.Normalize()
	if err := desc.Validate(); err != nil {
		return domain.Descriptor{}, err
	}
	return desc, nil
}
