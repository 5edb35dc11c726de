// Package vmerr centralizes the controller's error taxonomy: connection
// loss, protocol violations, handshake timeouts, snapshot mismatches and
// the caller-error cases a session can raise.
package vmerr

import "fmt"

// Exit codes surfaced in Controller.ExitCode after a process stop.
const (
	ExitOK                = 0
	ExitCompilerCrash     = 1
	ExitConnectionError   = 2
	ExitUncaughtException = 3
	ExitCompileTimeError  = 4
)

// ErrSessionTerminated is returned by any operation issued after the
// session has reached VMState Terminated.
var ErrSessionTerminated = fmt.Errorf("vmdbg: session is terminated")

// ErrHandshakeTimeout is returned when Handshake's deadline elapses
// before a HandShakeResult is observed.
var ErrHandshakeTimeout = fmt.Errorf("vmdbg: handshake timed out")

// ErrInfoFileNotFound is returned when the snapshot's adjacent
// <snapshot>.info.json cannot be opened.
var ErrInfoFileNotFound = fmt.Errorf("vmdbg: info file not found")

// ErrMalformedInfoFile is returned when the info file exists but does
// not decode into a NameOffsetMapping.
var ErrMalformedInfoFile = fmt.Errorf("vmdbg: malformed info file")

// ProtocolViolation is raised when a reply arrives with a code the
// caller did not expect, or when a reply-count requirement is not met.
type ProtocolViolation struct {
	Context string
	Got     int
	Want    int
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("vmdbg: protocol violation in %s: got %d, want %d", e.Context, e.Got, e.Want)
}

// SnapshotHashMismatch is raised by Initialize when the hash reported
// by DebuggingReply does not equal the hash recorded in the info file.
type SnapshotHashMismatch struct {
	Got, Want uint64
}

func (e *SnapshotHashMismatch) Error() string {
	return fmt.Sprintf("vmdbg: snapshot hash mismatch: vm reports %#x, info file has %#x", e.Got, e.Want)
}

// MissingFunction is raised locally (never surfaced to the caller as a
// fatal error) when a back-trace frame references a function id the
// current system does not know about. Recovered by substituting a
// sentinel frame.
type MissingFunction struct {
	FunctionID int64
}

func (e *MissingFunction) Error() string {
	return fmt.Sprintf("vmdbg: no function registered for id %d", e.FunctionID)
}

// PreconditionError indicates a caller bug: a high-level operation was
// issued while the session state machine was not in a state that
// permits it (e.g. cont() while not paused). These are programmer
// errors, not recoverable protocol conditions.
type PreconditionError struct {
	Op   string
	Want string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("vmdbg: %s requires the session to be %s", e.Op, e.Want)
}
