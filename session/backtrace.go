package session

import (
	"context"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// BackTrace implements spec.md §4.9's backTrace: return the cached
// stack if one exists for this pause, otherwise request it from the
// VM, classify each frame's visibility against the function registry,
// cache and return.
func (c *Controller) BackTrace(ctx context.Context, processID int64) (*state.BackTrace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached := c.eng.DebugState().CurrentBackTrace; cached != nil {
		return cached, nil
	}

	reply, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessBacktraceRequest{ProcessID: processID}))
	if err != nil {
		return nil, err
	}
	bt, ok := reply.(command.ProcessBacktrace)
	if !ok {
		return nil, &vmerr.ProtocolViolation{Context: "backTrace", Got: codeOf(reply), Want: int(command.CodeProcessBacktrace)}
	}

	frames := make([]state.Frame, bt.Frames)
	for i := range frames {
		_, visible, ok := c.funcs.Lookup(bt.FunctionIDs[i])
		frames[i] = state.Frame{
			FunctionID:      bt.FunctionIDs[i],
			BytecodePointer: int(bt.BytecodeIndices[i]),
			Visible:         ok && visible,
		}
	}

	result := &state.BackTrace{Frames: frames}
	c.eng.DebugState().CurrentBackTrace = result
	return result, nil
}

// Fibers implements spec.md §4.9's fibers: register the process's
// fibers in a scratch server-side map, then request each fiber's
// backtrace in order, cleaning the map up afterward regardless of
// outcome.
func (c *Controller) Fibers(ctx context.Context, processID int64) ([]*state.BackTrace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const fibersMap = "fibers"
	if _, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.NewMap{Name: fibersMap})); err != nil {
		return nil, err
	}
	defer func() { _, _ = c.eng.RunOne(ctx, command.MustGenericSafe(command.DeleteMap{Name: fibersMap})) }()

	reply, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessAddFibersToMap{ProcessID: processID, Map: fibersMap}))
	if err != nil {
		return nil, err
	}
	count, ok := reply.(command.ProcessNumberOfStacks)
	if !ok {
		return nil, &vmerr.ProtocolViolation{Context: "fibers", Got: codeOf(reply), Want: int(command.CodeProcessNumberOfStacks)}
	}

	result := make([]*state.BackTrace, 0, count.Value)
	for i := 0; i < count.Value; i++ {
		reply, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessFiberBacktraceRequest{Index: i}))
		if err != nil {
			return result, err
		}
		bt, ok := reply.(command.ProcessBacktrace)
		if !ok {
			return result, &vmerr.ProtocolViolation{Context: "fibers", Got: codeOf(reply), Want: int(command.CodeProcessBacktrace)}
		}
		frames := make([]state.Frame, bt.Frames)
		for j := range frames {
			_, visible, ok := c.funcs.Lookup(bt.FunctionIDs[j])
			frames[j] = state.Frame{
				FunctionID:      bt.FunctionIDs[j],
				BytecodePointer: int(bt.BytecodeIndices[j]),
				Visible:         ok && visible,
			}
		}
		result = append(result, &state.BackTrace{Frames: frames})
	}
	return result, nil
}

// SelectFrame implements spec.md §4.6's frame-selection precondition,
// delegating to DebugState.SelectFrame under the controller's lock.
func (c *Controller) SelectFrame(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eng.DebugState().SelectFrame(n)
}
