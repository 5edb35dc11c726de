// Package listener fans out lifecycle/stdio events to subscribers. A
// Listener is a capability set: BaseListener supplies a no-op default
// for every callback so concrete listeners override only what they
// consume (spec.md §9 design note, avoiding a deep inheritance tree).
package listener

import "github.com/lookbusy1344/vmdbg/breakpoint"

// RemoteFrame is the minimal frame shape listeners receive; it avoids
// a dependency from listener on the state package so either can be
// imported without the other.
type RemoteFrame struct {
	FunctionID      int64
	BytecodePointer int
}

// Listener is the full capability set from spec.md §4.4.
type Listener interface {
	ProcessStart(processID int64)
	ProcessRunnable(processID int64)
	ProcessExit(processID int64)
	PauseStart(processID int64)
	PauseExit(processID int64, frame RemoteFrame)
	PauseBreakpoint(processID int64, frame RemoteFrame, bp *breakpoint.Breakpoint)
	PauseInterrupted(processID int64, frame RemoteFrame)
	PauseException(processID int64, frame RemoteFrame, thrown any)
	Resume(processID int64)
	BreakpointAdded(processID int64, bp *breakpoint.Breakpoint)
	BreakpointRemoved(processID int64, bp *breakpoint.Breakpoint)
	GC(processID int64)
	WriteStdOut(processID int64, data []byte)
	WriteStdErr(processID int64, data []byte)
	LostConnection()
	Terminated()
}

// BaseListener implements every Listener method as a no-op. Embed it
// and override only the callbacks a concrete listener cares about.
type BaseListener struct{}

func (BaseListener) ProcessStart(int64)                            {}
func (BaseListener) ProcessRunnable(int64)                          {}
func (BaseListener) ProcessExit(int64)                              {}
func (BaseListener) PauseStart(int64)                               {}
func (BaseListener) PauseExit(int64, RemoteFrame)                   {}
func (BaseListener) PauseBreakpoint(int64, RemoteFrame, *breakpoint.Breakpoint) {}
func (BaseListener) PauseInterrupted(int64, RemoteFrame)            {}
func (BaseListener) PauseException(int64, RemoteFrame, any)         {}
func (BaseListener) Resume(int64)                                   {}
func (BaseListener) BreakpointAdded(int64, *breakpoint.Breakpoint)  {}
func (BaseListener) BreakpointRemoved(int64, *breakpoint.Breakpoint) {}
func (BaseListener) GC(int64)                                       {}
func (BaseListener) WriteStdOut(int64, []byte)                      {}
func (BaseListener) WriteStdErr(int64, []byte)                      {}
func (BaseListener) LostConnection()                                {}
func (BaseListener) Terminated()                                    {}

var _ Listener = BaseListener{}
