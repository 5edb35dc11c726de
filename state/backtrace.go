package state

// Frame is one entry of a BackTrace. Visible is computed by the code
// that builds the frame (the controller and the engine, which classify
// a function id against the loaded system) from the function's
// registered visibility; DebugState.ShowInternalFrames is not
// consulted.
type Frame struct {
	FunctionID      int64
	BytecodePointer int
	Visible         bool
}

// BackTrace is an ordered stack snapshot, cached per-pause and
// invalidated on any state transition out of Paused (spec.md §3).
type BackTrace struct {
	Frames []Frame
}

// ActualFrameNumber maps a visible-frame index to its absolute index
// in Frames, or -1 if visibleIndex does not correspond to a visible
// frame.
func (bt *BackTrace) ActualFrameNumber(visibleIndex int) int {
	if bt == nil {
		return -1
	}
	seen := 0
	for i, f := range bt.Frames {
		if !f.Visible {
			continue
		}
		if seen == visibleIndex {
			return i
		}
		seen++
	}
	return -1
}

// VisibleCount returns the number of visible frames.
func (bt *BackTrace) VisibleCount() int {
	if bt == nil {
		return 0
	}
	n := 0
	for _, f := range bt.Frames {
		if f.Visible {
			n++
		}
	}
	return n
}
