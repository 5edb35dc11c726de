// Package engine implements the Request/Reply Engine: sequential
// command send, read-N-replies-per-command, connection-error
// materialization and the shutdown drain (spec.md §4.8). It also owns
// process-stop handling, which updates the Session State Machine and
// Debug State Store and dispatches the matching listener notification.
//
// Grounded on service.DebuggerService's mutex-guarded-façade shape and
// documented lock-ordering discipline, and on debugger.Debugger's
// explicit switch-based dispatch style, translated from an in-process
// VM call to a wire round-trip.
package engine

import (
	"log"
	"sync"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/idmap"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/transport"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// FunctionLookup resolves a function id against the currently loaded
// system. ok is false if the id is unknown (spec.md §7 MissingFunction,
// recovered locally by substituting a sentinel frame).
//
// Design note: this is how DebugState's frame-resolution need is
// satisfied without a back-reference to the controller (spec.md §9):
// the controller hands the engine a resolver closure once, instead of
// the engine holding a pointer back to the controller.
type FunctionLookup func(functionID int64) (name string, visible bool, ok bool)

// demuxReader is the minimal surface Engine needs from wire.Demux,
// named here so engine doesn't need to import the wire package's
// frame types into its own public API.
type demuxReader interface {
	Next() (command.Inbound, error)
	IsClosed() bool
}

// Engine is the Request/Reply Engine. One Engine drives one
// transport.Connection for the lifetime of a session.
//
// Lock ordering: e.mu guards VMState, DebugState and ExitCode. Listener
// notifications are dispatched with e.mu released, so a listener
// callback may safely call back into the engine (e.g. to read the
// current backtrace) without deadlocking.
type Engine struct {
	mu sync.Mutex

	conn  transport.Connection
	demux demuxReader
	tr    idmap.Translator

	vmState  state.VMState
	debug    *state.DebugState
	resolver FunctionLookup

	listeners *listener.Registry
	exitCode  int

	logger *log.Logger
}

// New builds an Engine over conn. demux must already be wired to the
// connection's input stream (via wire.NewDemux(wire.NewDecoder(conn.Input()), tr, sink)).
func New(conn transport.Connection, demux demuxReader, tr idmap.Translator, reg *listener.Registry, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "engine: ", 0)
	}
	return &Engine{
		conn:      conn,
		demux:     demux,
		tr:        tr,
		vmState:   state.Initial,
		debug:     state.NewDebugState(),
		listeners: reg,
		logger:    logger,
	}
}

// SetResolver installs the function-id lookup the engine uses when
// materializing stop events into DebugState.Frame values. The
// controller calls this once, in session.New, with its
// FunctionRegistry's Lookup; later registrations are seen through that
// same lookup.
func (e *Engine) SetResolver(lookup FunctionLookup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = lookup
}

// VMState returns the current session state.
func (e *Engine) VMState() state.VMState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vmState
}

// DebugState returns the live debug state store. Callers must not
// mutate fields directly; use the accessor methods on *state.DebugState
// while holding no engine lock — DebugState has its own invariants but
// is not itself safe for concurrent use across goroutines, matching
// this module's single-flight-per-session concurrency model (spec.md §5).
func (e *Engine) DebugState() *state.DebugState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debug
}

// ExitCode returns the process exit code recorded by the last stop
// event, per the spec.md §4.8 exit-code table.
func (e *Engine) ExitCode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitCode
}

// Transition attempts a VMState move per the spec.md §4.7 table,
// returning a PreconditionError if it isn't legal from the current
// state. Used by High-Level Operations whose own issuance is the state
// change (spawnProcess, startRunning), as opposed to stop-driven
// transitions, which handleStop applies directly.
func (e *Engine) Transition(op string, to state.VMState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.vmState.CanTransition(to) {
		return &vmerr.PreconditionError{Op: op, Want: to.String()}
	}
	e.vmState = to
	return nil
}

// Notify fans fn out to every subscribed listener.
func (e *Engine) Notify(fn func(listener.Listener)) {
	e.listeners.Notify(fn)
}

func (e *Engine) setState(s state.VMState) {
	if !e.vmState.CanTransition(s) {
		e.logger.Printf("illegal transition %s -> %s ignored", e.vmState, s)
		return
	}
	e.vmState = s
}
