package state

import "github.com/lookbusy1344/vmdbg/breakpoint"

// RemoteValue is the root of a structured object read: a leaf
// DartValue echo, an instance with its fields, an array with its
// elements, or an error placeholder (spec.md §4.9 "structured object
// reads").
type RemoteValue struct {
	IsError bool
	Message string // set when IsError

	Kind   string // "null", "bool", "int", "double", "string", "instance", "array"
	Bool   bool
	Int    int64
	Double float64
	String string

	ClassID int64        // set when Kind == "instance"
	Fields  []RemoteValue // set when Kind == "instance"

	Elements []RemoteValue // set when Kind == "array"
}

// DebugState is the pause-scoped state owned by the controller:
// current process, top frame, breakpoints, cached backtrace and
// display flags. Reset on every handled process-stop (spec.md §3).
//
// Design note: DebugState does not hold a back-reference to the
// controller. Operations that need to resolve a function id against
// the loaded system (e.g. building the top frame after a stop) are done
// by the engine, with the resolver the controller installs through
// engine.SetResolver, breaking the cycle the source closes with a
// back-pointer.
type DebugState struct {
	CurrentProcessID int64
	TopFrame         *Frame

	Breakpoints *breakpoint.Table

	CurrentBackTrace *BackTrace

	CurrentFrameNumber int
	ShowInternalFrames bool

	CurrentUncaughtException *RemoteValue
}

// NewDebugState creates a DebugState with an empty breakpoint table.
func NewDebugState() *DebugState {
	return &DebugState{Breakpoints: breakpoint.NewTable()}
}

// Reset clears the current backtrace and uncaught exception, leaving
// the breakpoint table intact (spec.md §4.6).
func (d *DebugState) Reset() {
	d.CurrentBackTrace = nil
	d.CurrentUncaughtException = nil
	d.CurrentFrameNumber = 0
}

// SelectFrame succeeds iff a current back trace exists and
// ActualFrameNumber(n) != -1 (spec.md §4.6).
func (d *DebugState) SelectFrame(n int) error {
	if d.CurrentBackTrace == nil {
		return errNoBackTrace
	}
	if d.CurrentBackTrace.ActualFrameNumber(n) == -1 {
		return errNoSuchFrame
	}
	d.CurrentFrameNumber = n
	return nil
}

var (
	errNoBackTrace = stateError("state: no current back trace")
	errNoSuchFrame = stateError("state: frame number out of range")
)

type stateError string

func (e stateError) Error() string { return string(e) }
