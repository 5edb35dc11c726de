package main

import (
	"fmt"
	"os"

	"github.com/lookbusy1344/vmdbg/breakpoint"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
)

// consoleListener prints lifecycle and stdio events to the terminal as
// they arrive, independent of whatever REPL command is currently being
// typed. Grounded on debugger.Debugger's Println/Printf output helpers,
// generalized from an in-process text buffer to a listener.Listener
// subscriber over the wire connection.
type consoleListener struct {
	listener.BaseListener
}

func (consoleListener) ProcessStart(pid int64) { fmt.Printf("process %d started\n", pid) }
func (consoleListener) ProcessExit(pid int64)  { fmt.Printf("process %d exited\n", pid) }
func (consoleListener) PauseStart(pid int64)   { fmt.Printf("process %d paused\n", pid) }

func (consoleListener) PauseBreakpoint(pid int64, frame listener.RemoteFrame, bp *breakpoint.Breakpoint) {
	if bp != nil {
		fmt.Printf("breakpoint %d hit in %s @ function %d:%d\n", bp.ID, bp.Function.Name, frame.FunctionID, frame.BytecodePointer)
		return
	}
	fmt.Printf("paused at function %d:%d\n", frame.FunctionID, frame.BytecodePointer)
}

func (consoleListener) PauseInterrupted(pid int64, frame listener.RemoteFrame) {
	fmt.Printf("interrupted at function %d:%d\n", frame.FunctionID, frame.BytecodePointer)
}

func (consoleListener) PauseException(pid int64, frame listener.RemoteFrame, thrown any) {
	fmt.Printf("uncaught exception at function %d:%d: %s\n", frame.FunctionID, frame.BytecodePointer, formatThrown(thrown))
}

// formatThrown renders the resolved thrown value for the console; rv
// not being a state.RemoteValue would mean handleStop changed shape
// underneath this listener, so the fallback just shows whatever Go
// value arrived instead of panicking on it.
func formatThrown(thrown any) string {
	rv, ok := thrown.(state.RemoteValue)
	if !ok {
		return fmt.Sprintf("%v", thrown)
	}
	if rv.IsError {
		return fmt.Sprintf("<%s>", rv.Message)
	}
	switch rv.Kind {
	case "null":
		return "null"
	case "bool":
		return fmt.Sprintf("%t", rv.Bool)
	case "int":
		return fmt.Sprintf("%d", rv.Int)
	case "double":
		return fmt.Sprintf("%g", rv.Double)
	case "string":
		return rv.String
	case "instance":
		return fmt.Sprintf("<instance class=%d fields=%d>", rv.ClassID, len(rv.Fields))
	case "array":
		return fmt.Sprintf("<array len=%d>", len(rv.Elements))
	default:
		return fmt.Sprintf("<%s>", rv.Kind)
	}
}

func (consoleListener) Resume(pid int64) { fmt.Printf("process %d resumed\n", pid) }

func (consoleListener) BreakpointAdded(pid int64, bp *breakpoint.Breakpoint) {
	if bp != nil {
		fmt.Printf("breakpoint %d set in %s @ %d\n", bp.ID, bp.Function.Name, bp.BytecodeIndex)
	}
}

func (consoleListener) BreakpointRemoved(pid int64, bp *breakpoint.Breakpoint) {
	if bp != nil {
		fmt.Printf("breakpoint %d removed\n", bp.ID)
	}
}

func (consoleListener) WriteStdOut(_ int64, data []byte) { _, _ = os.Stdout.Write(data) }
func (consoleListener) WriteStdErr(_ int64, data []byte) { _, _ = os.Stderr.Write(data) }

func (consoleListener) LostConnection() { fmt.Println("connection to VM lost") }
func (consoleListener) Terminated()     { fmt.Println("session terminated") }

var _ listener.Listener = consoleListener{}
