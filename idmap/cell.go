package idmap

import "sync"

// Cell is a mutable Translator slot: both the engine's outbound codec
// and the Demultiplexer's inbound decoder share one Cell, so swapping
// Identity for Offset once (Initialize does this exactly once, before
// any function/class id crosses the wire) takes effect for both
// directions atomically. Reads after the single Set at startup never
// contend, matching the "selected once at Initialize" design note.
type Cell struct {
	mu    sync.RWMutex
	inner Translator
}

// NewCell creates a Cell defaulting to Identity, the correct
// translator outside snapshot mode.
func NewCell() *Cell {
	return &Cell{inner: Identity{}}
}

// Set installs t as the active translator.
func (c *Cell) Set(t Translator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = t
}

func (c *Cell) FunctionID(symbolic int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.FunctionID(symbolic)
}

func (c *Cell) ClassID(symbolic int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.ClassID(symbolic)
}

func (c *Cell) SymbolicFunction(vmID int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.SymbolicFunction(vmID)
}

func (c *Cell) SymbolicClass(vmID int64) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.SymbolicClass(vmID)
}

var _ Translator = (*Cell)(nil)
