package session

import (
	"context"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// Step implements spec.md §4.9's source-level step, degraded to a
// bytecode-granular loop: the compiler collaborator this module
// consumes exposes position<->offset resolution but not a frame-local
// "next bytecode pointer leaving this source line" query, so each
// iteration issues a single ProcessStep rather than a PushFromMap +
// ProcessStepTo pair. The loop repeats while the process is still
// paused and its top frame (function id and bytecode pointer) is the
// one the step started from, and returns as soon as either changes or
// the process stops being paused. No source-location check is made.
func (c *Controller) Step(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepLoop(ctx, func(ctx context.Context) error {
		return c.eng.Send(ctx, command.ProcessStep{})
	})
}

func (c *Controller) stepLoop(ctx context.Context, issue func(context.Context) error) error {
	if !c.eng.VMState().IsPaused() {
		return &vmerr.PreconditionError{Op: "step", Want: "paused"}
	}

	initial := c.eng.DebugState().TopFrame
	for {
		if err := issue(ctx); err != nil {
			return err
		}
		if _, err := c.eng.ReadOne(); err != nil {
			return err
		}
		if !c.eng.VMState().IsPaused() {
			return nil
		}
		current := c.eng.DebugState().TopFrame
		if stepMadeProgress(initial, current) {
			return nil
		}
	}
}

func stepMadeProgress(initial, current *state.Frame) bool {
	if initial == nil || current == nil {
		return true
	}
	return initial.FunctionID != current.FunctionID || initial.BytecodePointer != current.BytecodePointer
}

// StepOver implements spec.md §4.9's stepOver: each iteration issues
// ProcessStepOver, which the VM answers with a one-shot
// ProcessSetBreakpoint followed by the eventual stop. If the stop that
// follows isn't the one-shot itself and the session is still paused,
// the one-shot is explicitly deleted to avoid leaking it.
func (c *Controller) StepOver(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.eng.VMState().IsPaused() {
		return &vmerr.PreconditionError{Op: "stepOver", Want: "paused"}
	}

	initial := c.eng.DebugState().TopFrame
	for {
		if err := c.eng.Send(ctx, command.ProcessStepOver{}); err != nil {
			return err
		}
		oneShotID, stop, err := c.readStepStop(ctx)
		if err != nil {
			return err
		}
		if oneShotID != 0 && !stoppedOnOneShot(stop, oneShotID) {
			if err := c.cleanupOneShot(ctx, oneShotID); err != nil {
				return err
			}
		}
		if !c.eng.VMState().IsPaused() {
			return nil
		}
		current := c.eng.DebugState().TopFrame
		if stepMadeProgress(initial, current) {
			return nil
		}
	}
}

func stoppedOnOneShot(stop command.Inbound, oneShotID int64) bool {
	bp, ok := stop.(command.ProcessBreakpoint)
	return ok && bp.BreakpointID == oneShotID
}

// StepOut implements spec.md §4.9's stepOut: degrade to cont when the
// current back trace has at most one visible frame (there is no
// caller to return to); otherwise loop ProcessStepOut the same way
// stepOver loops ProcessStepOver, stopping once the top frame is
// visible again, and taking one additional source-level step if the
// stop landed exactly on the recorded return location.
func (c *Controller) StepOut(ctx context.Context) error {
	c.mu.Lock()

	if !c.eng.VMState().IsPaused() {
		c.mu.Unlock()
		return &vmerr.PreconditionError{Op: "stepOut", Want: "paused"}
	}

	bt := c.eng.DebugState().CurrentBackTrace
	if bt == nil {
		c.mu.Unlock()
		var err error
		if bt, err = c.BackTrace(ctx, c.CurrentProcessID()); err != nil {
			return err
		}
		c.mu.Lock()
	}
	if bt.VisibleCount() <= 1 {
		c.mu.Unlock()
		return c.Cont(ctx)
	}

	returnLocation := bt.Frames[bt.ActualFrameNumber(1)]

	for {
		if err := c.eng.Send(ctx, command.ProcessStepOut{}); err != nil {
			c.mu.Unlock()
			return err
		}
		oneShotID, stop, err := c.readStepStop(ctx)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		if oneShotID != 0 && !stoppedOnOneShot(stop, oneShotID) {
			if err := c.cleanupOneShot(ctx, oneShotID); err != nil {
				c.mu.Unlock()
				return err
			}
		}
		if !c.eng.VMState().IsPaused() {
			c.mu.Unlock()
			return nil
		}
		top := c.eng.DebugState().TopFrame
		if top != nil && top.Visible {
			landedOnReturn := top.FunctionID == returnLocation.FunctionID && top.BytecodePointer == returnLocation.BytecodePointer
			c.mu.Unlock()
			if landedOnReturn {
				return c.Step(ctx)
			}
			return nil
		}
	}
}

// readStepStop reads the frame(s) that follow a ProcessStepOver or
// ProcessStepOut send: if the VM installed a one-shot breakpoint first
// it arrives as a ProcessSetBreakpoint, in which case a second read
// fetches the actual stop; otherwise the first frame read already is
// the stop. Either way readStepStop returns exactly one stop reply,
// never double-consuming the stream.
func (c *Controller) readStepStop(ctx context.Context) (oneShotID int64, stop command.Inbound, err error) {
	first, err := c.eng.ReadOne()
	if err != nil {
		return 0, nil, err
	}
	set, isOneShot := first.(command.ProcessSetBreakpoint)
	if !isOneShot {
		return 0, first, nil
	}
	second, err := c.eng.ReadOne()
	if err != nil {
		return set.Value, nil, err
	}
	return set.Value, second, nil
}

// cleanupOneShot deletes a one-shot breakpoint that the step loop
// observed but whose stop did not land on.
func (c *Controller) cleanupOneShot(ctx context.Context, id int64) error {
	if !c.eng.VMState().IsPaused() {
		return nil
	}
	_, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessDeleteOneShotBreakpoint{ID: id}))
	return err
}
