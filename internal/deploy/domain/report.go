package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the outcome of a deployment run.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
)

var statusNames = [...]string{
	StatusSucceeded: "Succeeded",
	StatusFailed:    "Failed",
}

// String returns the string representation of the Status.
// Implements the Stringer interface.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "Unknown"
	}
	return statusNames[s]
}

// MarshalJSON encodes the status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a status from its name.
func (s *Status) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

// Snapshot describes the materialized source tree after a fetch.
type Snapshot struct {
	Revision      string // full SHA of the resolved revision
	FileCount     int    // files written to the target tree
	ExcludedCount int    // files omitted by exclude_ext
}

// Report is the outcome of one deployment run, with enough context for an
// operator to diagnose a failure or pick a rollback revision.
type Report struct {
	Status        Status        `json:"status"`
	Phase         Phase         `json:"phase"`               // phase reached when the run ended
	FailedIn      Phase         `json:"failed_in,omitempty"` // phase whose component failed, when Status is Failed
	Revision      string        `json:"revision,omitempty"`
	FilesDeployed int           `json:"files_deployed"`
	FilesExcluded int           `json:"files_excluded"`
	ChangeSummary string        `json:"change_summary,omitempty"` // unified diff of tree manifests
	Elapsed       time.Duration `json:"elapsed_ns"`
	Error         string        `json:"error,omitempty"`
}

// Failed reports whether the run ended in the Failed phase.
func (r Report) Failed() bool {
	return r.Status == StatusFailed
}
