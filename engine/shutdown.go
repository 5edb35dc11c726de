package engine

import (
	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/state"
)

// DrainOne reads one pending frame without forcing a fresh
// ConnectionError sentinel once the stream has already closed — the
// force=false variant from spec.md §4.8, used only by shutdown's
// drain loop to distinguish "nothing left buffered" from "the
// connection just died".
func (e *Engine) DrainOne() (command.Inbound, error) {
	return e.readOne(false)
}

// Close releases the underlying connection by calling its Close. A
// second call calls the connection's Close again; TCPConnection and
// WebSocketConnection then return the underlying close error.
func (e *Engine) Close() error {
	return e.conn.Close()
}

// MarkTerminated forces VMState straight to Terminated, bypassing the
// legality table — used by kill, which per spec.md §4.9 "marks
// terminated... it never raises" regardless of the state it interrupts.
func (e *Engine) MarkTerminated() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vmState = state.Terminated
}
