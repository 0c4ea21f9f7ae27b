// File: internal/lifecycle/state.go
package lifecycle

import "fmt"

// State is a position in a library's lifecycle. The "-ing" states are held while
// the corresponding provenance hook runs.
type State int

const (
	StateDiscovered State = iota
	StateInspecting
	StateInspected
	StateEvaluating
	StateEvaluated
	StateInstalling
	StateInstalled
	StateLoading
	StateLoaded
	StateUnusable
)

var stateNames = [...]string{
	StateDiscovered: "Discovered",
	StateInspecting: "Inspecting",
	StateInspected:  "Inspected",
	StateEvaluating: "Evaluating",
	StateEvaluated:  "Evaluated",
	StateInstalling: "Installing",
	StateInstalled:  "Installed",
	StateLoading:    "Loading",
	StateLoaded:     "Loaded",
	StateUnusable:   "Unusable",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateLoaded || s == StateUnusable
}

// stage names the hook that runs while in s, used for metrics and messages.
func (s State) stage() string {
	switch s {
	case StateDiscovered, StateInspecting, StateInspected:
		return "inspect"
	case StateEvaluating, StateEvaluated:
		return "evaluate"
	case StateInstalling, StateInstalled:
		return "install"
	default:
		return "load"
	}
}
