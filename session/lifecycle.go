package session

import (
	"context"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// CreateSnapshot implements spec.md §4.9's createSnapshot: issue the
// command, read its reply, then shut the session down.
func (c *Controller) CreateSnapshot(ctx context.Context, path string) (string, error) {
	c.mu.Lock()
	if err := c.eng.Send(ctx, command.CreateSnapshot{Path: path}); err != nil {
		c.mu.Unlock()
		return "", err
	}
	reply, err := c.eng.ReadOne()
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	if err := c.Shutdown(ctx, true); err != nil {
		return "", err
	}

	if snap, ok := reply.(command.CreateSnapshotResult); ok {
		return snap.Location, nil
	}
	return "", nil
}

// Terminate implements spec.md §4.9's terminate: ask the VM to end the
// session, then shut down.
func (c *Controller) Terminate(ctx context.Context) error {
	c.mu.Lock()
	err := c.eng.Send(ctx, command.SessionEnd{})
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Shutdown(ctx, true)
}

// Shutdown implements spec.md §4.9's shutdown: close the connection,
// then drain whatever frames had already arrived before the close.
// Closing first rather than last matters: DrainOne's underlying read
// has no deadline, so draining before closing would block forever if
// the remote VM holds the socket open without sending anything further;
// closing first means the drain loop only ever sees frames the
// Decoder's buffer already held; any read past that fails immediately
// rather than blocking. When ignoreExtraCommands is false, a non-nil
// drained frame is treated as a protocol violation and kill is invoked
// before the error is raised; when true (the path createSnapshot and
// terminate use) drained frames are discarded silently. Once the
// drain finishes, the session is marked Terminated, so every later
// send fails with ErrSessionTerminated.
func (c *Controller) Shutdown(ctx context.Context, ignoreExtraCommands bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	closeErr := c.eng.Close()

	for {
		in, err := c.eng.DrainOne()
		if err != nil {
			break
		}
		if in == nil {
			break
		}
		if !ignoreExtraCommands {
			c.killLocked()
			return &vmerr.ProtocolViolation{Context: "shutdown drain", Got: codeOf(in), Want: 0}
		}
	}

	c.eng.MarkTerminated()
	c.eng.DebugState().Breakpoints.Clear()
	return closeErr
}

// Kill implements spec.md §4.9's kill: mark the session terminated and
// close the connection immediately. Never returns an error, matching
// "it never raises".
func (c *Controller) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killLocked()
}

func (c *Controller) killLocked() {
	c.eng.MarkTerminated()
	_ = c.eng.Close()
}
