package command

import (
	"encoding/binary"
	"io"

	"github.com/lookbusy1344/vmdbg/idmap"
)

// Outbound is a command the controller sends to the VM. Each variant
// knows its wire code, how to serialize its payload given the active
// id translator, and how many replies the Request/Reply Engine must
// read for it.
type Outbound interface {
	Code() Code
	Serialize(w io.Writer, tr idmap.Translator) error
	ExpectedReplies() Arity
}

func writeInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func writeInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func writeBytes(w io.Writer, b []byte) error {
	if err := writeInt32(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

// HandShake is the version negotiation command. It is manual: the
// handshake high-level operation drives its own retry loop and reads
// the reply itself rather than going through the generic engine.
type HandShake struct{ Version string }

func (HandShake) Code() Code             { return CodeHandShake }
func (HandShake) ExpectedReplies() Arity { return Manual() }
func (c HandShake) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeString(w, c.Version)
}

// Debugging requests the initial DebuggingReply describing whether the
// VM is running from a snapshot.
type Debugging struct{}

func (Debugging) Code() Code                                  { return CodeDebugging }
func (Debugging) ExpectedReplies() Arity                      { return Fixed(1) }
func (Debugging) Serialize(io.Writer, idmap.Translator) error { return nil }

// LiveEditing switches the VM into incremental-compilation mode; the
// compiler's deltas are then pushed as ordinary run_commands batches.
type LiveEditing struct{}

func (LiveEditing) Code() Code                                  { return CodeLiveEditing }
func (LiveEditing) ExpectedReplies() Arity                      { return Fixed(0) }
func (LiveEditing) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProcessSpawnForMain spawns the debuggee with the given arguments.
type ProcessSpawnForMain struct{ Args []string }

func (ProcessSpawnForMain) Code() Code             { return CodeProcessSpawnForMain }
func (ProcessSpawnForMain) ExpectedReplies() Arity { return Fixed(0) }
func (c ProcessSpawnForMain) Serialize(w io.Writer, _ idmap.Translator) error {
	if err := writeInt32(w, int32(len(c.Args))); err != nil {
		return err
	}
	for _, a := range c.Args {
		if err := writeString(w, a); err != nil {
			return err
		}
	}
	return nil
}

// ProcessRun transitions the spawned process to running. Its reply is
// consumed manually by startRunning, which must dispatch the stop
// handling around it rather than letting the generic engine do so
// silently.
type ProcessRun struct{}

func (ProcessRun) Code() Code                                  { return CodeProcessRun }
func (ProcessRun) ExpectedReplies() Arity                      { return Manual() }
func (ProcessRun) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProcessContinue resumes a paused process.
type ProcessContinue struct{}

func (ProcessContinue) Code() Code                                  { return CodeProcessContinue }
func (ProcessContinue) ExpectedReplies() Arity                      { return Manual() }
func (ProcessContinue) Serialize(io.Writer, idmap.Translator) error { return nil }

// PushFromMap pushes a value looked up by key onto the VM's evaluation
// stack; used ahead of ProcessSetBreakpoint/ProcessStepTo to supply the
// target function reference.
type PushFromMap struct {
	Map        string
	FunctionID int64
}

func (PushFromMap) Code() Code             { return CodePushFromMap }
func (PushFromMap) ExpectedReplies() Arity { return Fixed(0) }
func (c PushFromMap) Serialize(w io.Writer, tr idmap.Translator) error {
	if err := writeString(w, c.Map); err != nil {
		return err
	}
	return writeInt64(w, tr.FunctionID(c.FunctionID))
}

// ProcessSetBreakpoint sets a breakpoint at the bytecode index of the
// function most recently pushed via PushFromMap.
type ProcessSetBreakpoint struct{ BytecodeIndex int }

func (ProcessSetBreakpoint) Code() Code             { return CodeProcessSetBreakpoint }
func (ProcessSetBreakpoint) ExpectedReplies() Arity { return Fixed(1) }
func (c ProcessSetBreakpoint) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt32(w, int32(c.BytecodeIndex))
}

// ProcessDeleteBreakpoint removes a previously-set breakpoint by id.
type ProcessDeleteBreakpoint struct{ ID int64 }

func (ProcessDeleteBreakpoint) Code() Code             { return CodeProcessDeleteBreakpoint }
func (ProcessDeleteBreakpoint) ExpectedReplies() Arity { return Fixed(0) }
func (c ProcessDeleteBreakpoint) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt64(w, c.ID)
}

// ProcessDeleteOneShotBreakpoint removes the VM-installed one-shot
// breakpoint created by a ProcessStepOver/ProcessStepOut.
type ProcessDeleteOneShotBreakpoint struct{ ID int64 }

func (ProcessDeleteOneShotBreakpoint) Code() Code             { return CodeProcessDeleteOneShotBreakpoint }
func (ProcessDeleteOneShotBreakpoint) ExpectedReplies() Arity { return Fixed(0) }
func (c ProcessDeleteOneShotBreakpoint) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt64(w, c.ID)
}

// ProcessStepTo issues a bytecode step that runs until the given
// bytecode pointer within the function last pushed via PushFromMap.
type ProcessStepTo struct{ BytecodePointer int }

func (ProcessStepTo) Code() Code             { return CodeProcessStepTo }
func (ProcessStepTo) ExpectedReplies() Arity { return Manual() }
func (c ProcessStepTo) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt32(w, int32(c.BytecodePointer))
}

// ProcessStep executes exactly one bytecode instruction.
type ProcessStep struct{}

func (ProcessStep) Code() Code                                  { return CodeProcessStep }
func (ProcessStep) ExpectedReplies() Arity                      { return Manual() }
func (ProcessStep) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProcessStepOver steps over the current call; the VM installs a
// one-shot breakpoint and replies with ProcessSetBreakpoint followed
// by the eventual stop.
type ProcessStepOver struct{}

func (ProcessStepOver) Code() Code                                  { return CodeProcessStepOver }
func (ProcessStepOver) ExpectedReplies() Arity                      { return Manual() }
func (ProcessStepOver) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProcessStepOut runs until the current frame returns; the VM installs
// a one-shot breakpoint the same way as ProcessStepOver.
type ProcessStepOut struct{}

func (ProcessStepOut) Code() Code                                  { return CodeProcessStepOut }
func (ProcessStepOut) ExpectedReplies() Arity                      { return Manual() }
func (ProcessStepOut) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProcessBacktraceRequest asks for the current stack of the given
// process.
type ProcessBacktraceRequest struct{ ProcessID int64 }

func (ProcessBacktraceRequest) Code() Code             { return CodeProcessBacktraceRequest }
func (ProcessBacktraceRequest) ExpectedReplies() Arity { return Fixed(1) }
func (c ProcessBacktraceRequest) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt64(w, c.ProcessID)
}

// ProcessUncaughtExceptionRequest asks for the thrown value of the
// most recent uncaught exception stop.
type ProcessUncaughtExceptionRequest struct{}

func (ProcessUncaughtExceptionRequest) Code() Code             { return CodeProcessUncaughtExceptionRequest }
func (ProcessUncaughtExceptionRequest) ExpectedReplies() Arity { return Manual() }
func (ProcessUncaughtExceptionRequest) Serialize(io.Writer, idmap.Translator) error {
	return nil
}

// NewMap creates a named server-side map (used for the fibers
// protocol: a scratch collection the VM indexes into during a single
// high-level operation).
type NewMap struct{ Name string }

func (NewMap) Code() Code             { return CodeNewMap }
func (NewMap) ExpectedReplies() Arity { return Fixed(0) }
func (c NewMap) Serialize(w io.Writer, _ idmap.Translator) error { return writeString(w, c.Name) }

// DeleteMap deletes a named server-side map.
type DeleteMap struct{ Name string }

func (DeleteMap) Code() Code             { return CodeDeleteMap }
func (DeleteMap) ExpectedReplies() Arity { return Fixed(0) }
func (c DeleteMap) Serialize(w io.Writer, _ idmap.Translator) error { return writeString(w, c.Name) }

// ProcessAddFibersToMap populates the named map with the process's
// fibers and replies with their count.
type ProcessAddFibersToMap struct {
	ProcessID int64
	Map       string
}

func (ProcessAddFibersToMap) Code() Code             { return CodeProcessAddFibersToMap }
func (ProcessAddFibersToMap) ExpectedReplies() Arity { return Fixed(1) }
func (c ProcessAddFibersToMap) Serialize(w io.Writer, _ idmap.Translator) error {
	if err := writeInt64(w, c.ProcessID); err != nil {
		return err
	}
	return writeString(w, c.Map)
}

// ProcessFiberBacktraceRequest asks for the backtrace of the i-th
// fiber registered in the fibers map.
type ProcessFiberBacktraceRequest struct{ Index int }

func (ProcessFiberBacktraceRequest) Code() Code             { return CodeProcessFiberBacktraceRequest }
func (ProcessFiberBacktraceRequest) ExpectedReplies() Arity { return Fixed(1) }
func (c ProcessFiberBacktraceRequest) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeInt32(w, int32(c.Index))
}

// ProcessDebugInterrupt asks the VM to pause at its next safepoint; it
// is fire-and-forget, per spec §4.9 "interrupt ... without waiting".
type ProcessDebugInterrupt struct{}

func (ProcessDebugInterrupt) Code() Code                                  { return CodeProcessDebugInterrupt }
func (ProcessDebugInterrupt) ExpectedReplies() Arity                      { return Fixed(0) }
func (ProcessDebugInterrupt) Serialize(io.Writer, idmap.Translator) error { return nil }

// SessionEnd asks the VM to terminate the debuggee and end the
// session.
type SessionEnd struct{}

func (SessionEnd) Code() Code                                  { return CodeSessionEnd }
func (SessionEnd) ExpectedReplies() Arity                      { return Manual() }
func (SessionEnd) Serialize(io.Writer, idmap.Translator) error { return nil }

// ProgramInfoRequest asks the VM for its current function/class table,
// the JSON payload ProgramInfoCommand decodes into (id, name,
// visibility) triples the controller registers for setBreakpoint by
// name and backtrace frame resolution.
type ProgramInfoRequest struct{}

func (ProgramInfoRequest) Code() Code                                  { return CodeProgramInfoRequest }
func (ProgramInfoRequest) ExpectedReplies() Arity                      { return Fixed(1) }
func (ProgramInfoRequest) Serialize(io.Writer, idmap.Translator) error { return nil }

// CreateSnapshot asks the VM to serialize its current heap/code into a
// new snapshot and reply with its location.
type CreateSnapshot struct{ Path string }

func (CreateSnapshot) Code() Code             { return CodeCreateSnapshot }
func (CreateSnapshot) ExpectedReplies() Arity { return Manual() }
func (c CreateSnapshot) Serialize(w io.Writer, _ idmap.Translator) error {
	return writeString(w, c.Path)
}
