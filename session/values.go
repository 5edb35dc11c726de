package session

import (
	"context"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/state"
)

// ReadRemoteValue implements spec.md §4.9's structured object reads,
// delegating to the engine's decoder (shared with handleStop's
// UncaughtException resolution so both paths agree on the wire shape).
// Must only be called immediately after a command whose reply is
// documented as "manual" precisely so this recursive read can run
// uninterrupted by the generic engine's reply counting.
func (c *Controller) ReadRemoteValue() (state.RemoteValue, error) {
	return c.eng.ReadRemoteValue()
}

// ReadUncaughtException re-queries the thrown value of the most recent
// uncaught-exception stop, caching the result in
// DebugState.CurrentUncaughtException. handleStop already resolves and
// caches this once when the stop itself arrives; this exists for
// callers that want to re-fetch it explicitly (e.g. after a listener
// callback cleared the cache).
func (c *Controller) ReadUncaughtException() (state.RemoteValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.eng.Send(context.Background(), command.ProcessUncaughtExceptionRequest{}); err != nil {
		return state.RemoteValue{}, err
	}
	v, err := c.ReadRemoteValue()
	if err != nil {
		return state.RemoteValue{}, err
	}
	c.eng.DebugState().CurrentUncaughtException = &v
	return v, nil
}
