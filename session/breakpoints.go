package session

import (
	"context"

	"github.com/lookbusy1344/vmdbg/breakpoint"
	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/compiler"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// SetBreakpoint implements spec.md §4.9's "setBreakpoint by method
// name": for every function registered under methodName, push it onto
// the VM's method map and set a breakpoint at the given bytecode
// index, recording each VM-assigned id in the Debug State Store.
func (c *Controller) SetBreakpoint(ctx context.Context, methodName string, bytecodeIndex int) ([]*breakpoint.Breakpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.funcs.ByName(methodName)
	result := make([]*breakpoint.Breakpoint, 0, len(ids))
	for _, fid := range ids {
		bp, err := c.setOneBreakpoint(ctx, fid, methodName, bytecodeIndex, false)
		if err != nil {
			return result, err
		}
		result = append(result, bp)
	}
	return result, nil
}

func (c *Controller) setOneBreakpoint(ctx context.Context, functionID int64, name string, bytecodeIndex int, oneShot bool) (*breakpoint.Breakpoint, error) {
	cmds := []command.GenericSafe{
		command.MustGenericSafe(command.PushFromMap{Map: "methods", FunctionID: functionID}),
		command.MustGenericSafe(command.ProcessSetBreakpoint{BytecodeIndex: bytecodeIndex}),
	}
	reply, err := c.eng.RunCommands(ctx, cmds)
	if err != nil {
		return nil, err
	}
	set, ok := reply.(command.ProcessSetBreakpoint)
	if !ok {
		return nil, &vmerr.ProtocolViolation{Context: "setBreakpoint", Got: codeOf(reply), Want: int(command.CodeProcessSetBreakpoint)}
	}

	bp := c.eng.DebugState().Breakpoints.Add(set.Value, breakpoint.FunctionRef{ID: functionID, Name: name}, bytecodeIndex, oneShot)
	c.eng.Notify(func(l listener.Listener) { l.BreakpointAdded(0, bp) })
	return bp, nil
}

// SetFileBreakpoint implements spec.md §4.9's setFileBreakpoint:
// resolve a source position through the compiler (by line/column, or
// by a search pattern when given), then a function/bytecode pair
// through its debug info, and register it via the same helper
// setBreakpoint uses. Returns (nil, nil) if no compiler is configured
// or any resolution step fails, matching "if null, return null".
func (c *Controller) SetFileBreakpoint(ctx context.Context, uri string, line, column int, pattern string) (*breakpoint.Breakpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compiler == nil {
		return nil, nil
	}

	var (
		found bool
		p     compiler.Position
	)
	if pattern != "" {
		p, found = c.compiler.PositionInFileFromPattern(uri, line, pattern)
	} else {
		p, found = c.compiler.PositionInFile(uri, line, column)
	}
	if !found || !p.Valid {
		return nil, nil
	}

	info, found := c.compiler.DebugInfoForPosition(uri, p, nil)
	if !found {
		return nil, nil
	}

	name, _, _ := c.funcs.Lookup(info.FunctionID)
	return c.setOneBreakpoint(ctx, info.FunctionID, name, info.BytecodeIndex, false)
}

// DeleteBreakpoint removes a previously-set breakpoint.
func (c *Controller) DeleteBreakpoint(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessDeleteBreakpoint{ID: id})); err != nil {
		return err
	}
	bp := c.eng.DebugState().Breakpoints.Delete(id)
	if bp != nil {
		c.eng.Notify(func(l listener.Listener) { l.BreakpointRemoved(0, bp) })
	}
	return nil
}

func codeOf(in command.Inbound) int {
	if in == nil {
		return -1
	}
	return int(in.Code())
}
