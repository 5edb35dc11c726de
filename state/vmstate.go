// Package state owns the two pieces of mutable session state the
// Request/Reply Engine and High-Level Operations coordinate through:
// the VMState lifecycle (vmstate.go, grounded on the teacher's
// vm.ExecutionState enum) and the pause-scoped DebugState (grounded on
// debugger.Debugger's fields).
package state

import "fmt"

// VMState is the session lifecycle from spec.md §4.7.
type VMState int

const (
	Initial VMState = iota
	Spawned
	Running
	Paused
	Terminating
	Terminated
)

func (s VMState) String() string {
	switch s {
	case Initial:
		return "initial"
	case Spawned:
		return "spawned"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("VMState(%d)", int(s))
	}
}

// legalTransitions encodes the table from spec.md §4.7. A
// ConnectionError is handled separately (any -> terminating, then
// terminating -> terminated on shutdown) since it is legal from every
// state.
var legalTransitions = map[VMState]map[VMState]bool{
	Initial:     {Spawned: true},
	Spawned:     {Running: true},
	Running:     {Paused: true, Terminating: true},
	Paused:      {Running: true, Terminating: true},
	Terminating: {Terminated: true},
}

// CanTransition reports whether moving from s to to is legal per the
// table in spec.md §4.7. A ConnectionError forces Terminating from any
// state and is checked by the caller before consulting this table.
func (s VMState) CanTransition(to VMState) bool {
	return legalTransitions[s][to]
}

// IsPaused reports whether the session is currently paused, the
// precondition for step/stepOver/stepOut/cont/backTrace.
func (s VMState) IsPaused() bool { return s == Paused }

// IsSpawned reports whether a process has been spawned (spawned or
// later, but not yet terminated).
func (s VMState) IsSpawned() bool {
	return s == Spawned || s == Running || s == Paused || s == Terminating
}

// IsTerminal reports whether no further outbound commands may be
// encoded (spec.md §3 invariant).
func (s VMState) IsTerminal() bool { return s == Terminated }
