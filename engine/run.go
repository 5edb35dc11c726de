package engine

import (
	"context"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/vmerr"
	"github.com/lookbusy1344/vmdbg/wire"
)

// exitCodeForStop implements the spec.md §4.8 exit-code table.
func exitCodeForStop(in command.Inbound) int {
	switch in.(type) {
	case command.ProcessBreakpoint, command.ProcessTerminated:
		return vmerr.ExitOK
	case command.UncaughtException:
		return vmerr.ExitUncaughtException
	case command.ProcessCompileTimeError:
		return vmerr.ExitCompileTimeError
	case command.ConnectionError:
		return vmerr.ExitConnectionError
	default:
		return vmerr.ExitOK
	}
}

// RunCommands implements spec.md §4.8's run_commands: serialize each
// command in order, read exactly its declared reply count off the
// demultiplexed stream, retaining only the last frame observed across
// the whole batch. A stream termination mid-read materializes the
// ConnectionError sentinel, which this call then runs through
// process-stop handling exactly like any other stop reply.
func (e *Engine) RunCommands(ctx context.Context, cmds []command.GenericSafe) (command.Inbound, error) {
	var last command.Inbound

	for _, c := range cmds {
		if err := e.send(ctx, c.Command()); err != nil {
			return nil, err
		}

		n := c.ExpectedReplies()
		for i := 0; i < n; i++ {
			reply, err := e.readOne(true)
			if err != nil {
				return nil, err
			}
			last = reply
			if reply.Code().IsStop() {
				e.handleStop(reply)
			}
		}
	}

	return last, nil
}

// RunOne is the single-command convenience form used by most
// High-Level Operations.
func (e *Engine) RunOne(ctx context.Context, cmd command.GenericSafe) (command.Inbound, error) {
	return e.RunCommands(ctx, []command.GenericSafe{cmd})
}

// send serializes cmd directly to the connection's output sink, after
// rejecting the call if the session has already reached VMState
// Terminated (spec.md §3's invariant: no further command may be
// encoded once terminated). Manual commands reach the wire exclusively
// through this path, never through RunCommands.
func (e *Engine) send(ctx context.Context, cmd command.Outbound) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if e.VMState().IsTerminal() {
		return vmerr.ErrSessionTerminated
	}
	return e.writeCommand(cmd)
}

// writeCommand serializes cmd with no terminal-state check. Used by
// send, and by resolveUncaughtException to continue the round trip a
// stop already in flight started — that write is a continuation of
// handling the current stop, not a new caller-issued operation, and
// runs with e.mu already held so it cannot call back through send's
// own VMState() lock.
func (e *Engine) writeCommand(cmd command.Outbound) error {
	return wire.Encode(e.conn.Output(), e.tr, cmd)
}

// ReadOne reads the next demultiplexed inbound frame, running
// process-stop handling if it is a stop. Exported for High-Level
// Operations that drive manual-arity commands themselves (handshake,
// step/stepOver/stepOut, structured object reads) so that a stop
// observed on a manual path is handled exactly like one observed
// inside RunCommands.
func (e *Engine) ReadOne() (command.Inbound, error) {
	in, err := e.readOne(true)
	if err != nil {
		return nil, err
	}
	if in != nil && in.Code().IsStop() {
		e.handleStop(in)
	}
	return in, nil
}

// readOne reads the next frame. force mirrors spec.md §4.8's
// force=false drain variant: when false and the stream has already
// terminated, it returns (nil, nil) instead of a fresh ConnectionError
// sentinel, so shutdown's drain loop can tell "nothing left to read"
// apart from "connection just died".
func (e *Engine) readOne(force bool) (command.Inbound, error) {
	if !force && e.demux.IsClosed() {
		return nil, nil
	}
	in, err := e.demux.Next()
	if err != nil {
		return nil, err
	}
	if !force && e.demux.IsClosed() {
		return nil, nil
	}
	return in, nil
}

// Send issues a manual-arity command without reading any reply,
// matching interrupt's fire-and-forget semantics.
func (e *Engine) Send(ctx context.Context, cmd command.Outbound) error {
	return e.send(ctx, cmd)
}

// handleStop applies spec.md §4.8's process-stop handling: reset the
// Debug State, record the exit code, transition VMState, populate the
// current process/top frame where applicable, and dispatch the
// matching listener notification. Runs with e.mu held only for the
// state mutation; the listener fan-out happens after release so a
// listener callback may safely re-enter the engine.
func (e *Engine) handleStop(in command.Inbound) {
	e.mu.Lock()

	e.debug.Reset()
	e.exitCode = exitCodeForStop(in)

	var notify func()

	switch v := in.(type) {
	case command.ProcessBreakpoint:
		e.setState(state.Paused)
		e.debug.CurrentProcessID = v.ProcessID
		frame, resolved := e.resolveFrame(v.FunctionID, v.BytecodeIndex)
		e.debug.TopFrame = &frame

		bp := e.debug.Breakpoints.Get(v.BreakpointID)
		rf := listener.RemoteFrame{FunctionID: frame.FunctionID, BytecodePointer: frame.BytecodePointer}
		if bp != nil && resolved {
			notify = func() { e.listeners.Notify(func(l listener.Listener) { l.PauseBreakpoint(v.ProcessID, rf, bp) }) }
		} else {
			notify = func() { e.listeners.Notify(func(l listener.Listener) { l.PauseInterrupted(v.ProcessID, rf) }) }
		}

	case command.UncaughtException:
		e.vmState = state.Terminating
		e.debug.CurrentProcessID = v.ProcessID
		frame, _ := e.resolveFrame(v.FunctionID, v.BytecodeIndex)
		e.debug.TopFrame = &frame
		rf := listener.RemoteFrame{FunctionID: frame.FunctionID, BytecodePointer: frame.BytecodePointer}
		thrown := e.resolveUncaughtException()
		e.debug.CurrentUncaughtException = &thrown
		notify = func() { e.listeners.Notify(func(l listener.Listener) { l.PauseException(v.ProcessID, rf, thrown) }) }

	case command.ProcessCompileTimeError:
		e.vmState = state.Terminating
		notify = func() { e.listeners.Notify(func(l listener.Listener) { l.ProcessExit(e.debug.CurrentProcessID) }) }

	case command.ProcessTerminated:
		e.vmState = state.Terminating
		pid := e.debug.CurrentProcessID
		notify = func() { e.listeners.Notify(func(l listener.Listener) { l.ProcessExit(pid) }) }

	case command.ConnectionError:
		e.vmState = state.Terminating
		notify = func() { e.listeners.Notify(func(l listener.Listener) { l.LostConnection() }) }
	}

	e.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// resolveUncaughtException issues the ProcessUncaughtExceptionRequest
// round trip and decodes the structured reply into the RemoteValue
// spec.md §8 Scenario S4 expects PauseException to carry, rather than
// the raw wire UncaughtException struct. Called from handleStop with
// e.mu already held; uses the unexported send/readOne pair directly so
// it never re-enters handleStop (a DartValue/InstanceStructure/
// ArrayStructure reply is never itself a stop).
func (e *Engine) resolveUncaughtException() state.RemoteValue {
	if err := e.writeCommand(command.ProcessUncaughtExceptionRequest{}); err != nil {
		return state.RemoteValue{IsError: true, Message: err.Error()}
	}
	in, err := e.readOne(true)
	if err != nil {
		return state.RemoteValue{IsError: true, Message: err.Error()}
	}
	v, err := decodeRemoteValue(in, func() (command.Inbound, error) { return e.readOne(true) })
	if err != nil {
		return state.RemoteValue{IsError: true, Message: err.Error()}
	}
	return v
}

// ReadRemoteValue implements spec.md §4.9's structured object reads: a
// leaf DartValue becomes a RemoteValue directly, an InstanceStructure
// recurses over exactly FieldCount further frames as fields, an
// ArrayStructure recurses over End-Start further frames as elements,
// and anything else becomes a RemoteErrorObject placeholder. Must only
// be called immediately after a command whose reply is documented as
// "manual" precisely so this recursive read can run uninterrupted by
// the generic engine's reply counting.
func (e *Engine) ReadRemoteValue() (state.RemoteValue, error) {
	in, err := e.ReadOne()
	if err != nil {
		return state.RemoteValue{}, err
	}
	return decodeRemoteValue(in, e.ReadOne)
}

func decodeRemoteValue(in command.Inbound, next func() (command.Inbound, error)) (state.RemoteValue, error) {
	switch v := in.(type) {
	case command.DartValue:
		return dartValueToRemote(v), nil

	case command.InstanceStructure:
		fields := make([]state.RemoteValue, 0, v.FieldCount)
		for i := 0; i < v.FieldCount; i++ {
			fin, err := next()
			if err != nil {
				return state.RemoteValue{}, err
			}
			field, err := decodeRemoteValue(fin, next)
			if err != nil {
				return state.RemoteValue{}, err
			}
			fields = append(fields, field)
		}
		return state.RemoteValue{Kind: "instance", ClassID: v.ClassID, Fields: fields}, nil

	case command.ArrayStructure:
		n := v.End - v.Start
		elements := make([]state.RemoteValue, 0, n)
		for i := 0; i < n; i++ {
			ein, err := next()
			if err != nil {
				return state.RemoteValue{}, err
			}
			elem, err := decodeRemoteValue(ein, next)
			if err != nil {
				return state.RemoteValue{}, err
			}
			elements = append(elements, elem)
		}
		return state.RemoteValue{Kind: "array", Elements: elements}, nil

	default:
		return state.RemoteValue{IsError: true, Message: "unexpected reply in structured object read"}, nil
	}
}

func dartValueToRemote(v command.DartValue) state.RemoteValue {
	switch v.Kind {
	case command.ValueKindNull:
		return state.RemoteValue{Kind: "null"}
	case command.ValueKindBool:
		return state.RemoteValue{Kind: "bool", Bool: v.Bool}
	case command.ValueKindInt:
		return state.RemoteValue{Kind: "int", Int: v.Int}
	case command.ValueKindDouble:
		return state.RemoteValue{Kind: "double", Double: v.Double}
	case command.ValueKindString:
		return state.RemoteValue{Kind: "string", String: v.String}
	default:
		return state.RemoteValue{IsError: true, Message: "unknown DartValue kind"}
	}
}

// resolveFrame looks up functionID through the installed resolver,
// producing the sentinel "unknown function" frame (visible=false) if
// the id isn't registered — spec.md §7's MissingFunction, recovered
// locally rather than raised.
func (e *Engine) resolveFrame(functionID int64, bytecodeIndex int) (state.Frame, bool) {
	if e.resolver == nil {
		return state.Frame{FunctionID: functionID, BytecodePointer: bytecodeIndex, Visible: false}, false
	}
	_, visible, ok := e.resolver(functionID)
	return state.Frame{FunctionID: functionID, BytecodePointer: bytecodeIndex, Visible: ok && visible}, ok
}
