package domain

import (
	"fmt"
	"strings"
)

// Phase identifies where a deployment run is in its lifecycle. A run
// advances strictly Idle → Loading → Fetching → ApplyingEnv → Done; Failed
// is terminal and reachable from any non-terminal phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseFetching
	PhaseApplyingEnv
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:        "Idle",
	PhaseLoading:     "Loading",
	PhaseFetching:    "Fetching",
	PhaseApplyingEnv: "ApplyingEnv",
	PhaseDone:        "Done",
	PhaseFailed:      "Failed",
}

// String returns the phase name. Implements the Stringer interface.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// CanTransition reports whether a run may move from p to next. Each phase
// must fully succeed before advancing; any non-terminal phase may fail.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	return next == p+1
}

// MarshalJSON encodes the phase as its name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a phase from its name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	for i, n := range phaseNames {
		if n == name {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", name)
}
