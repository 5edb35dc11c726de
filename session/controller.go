// Package session implements the High-Level Operations façade: the one
// object a caller drives (handshake, initialize, spawnProcess,
// startRunning, step family, breakpoints, back traces, structured
// value reads, snapshot/termination) built on top of the
// Request/Reply Engine. Grounded on service.DebuggerService's
// mutex-guarded public-method shape, generalized from its
// single-in-process-VM assumption to a wire-connected one.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/compiler"
	"github.com/lookbusy1344/vmdbg/engine"
	"github.com/lookbusy1344/vmdbg/idmap"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/transport"
	"github.com/lookbusy1344/vmdbg/vmerr"
	"github.com/lookbusy1344/vmdbg/wire"
)

// defaultHandshakeTimeout is used when Handshake is called with
// maxTimeSpent <= 0.
const defaultHandshakeTimeout = 30 * time.Second

// handshakeRetryInterval is how often handshake re-sends HandShake
// while waiting for a reply, per spec.md §4.9.
const handshakeRetryInterval = 2 * time.Second

// Controller is the High-Level Operations façade for one debug
// session. Every exported operation that issues commands, except
// Handshake and ReadRemoteValue, serializes against c.mu (the plain
// accessors ID, Subscribe, Unsubscribe, VMState, ExitCode and
// CurrentProcessID do not take it), matching the single-threaded cooperative scheduling model of
// spec.md §5: only one high-level operation may be in flight at a
// time.
type Controller struct {
	mu sync.Mutex

	id        uuid.UUID
	eng       *engine.Engine
	conn      transport.Connection
	cell      *idmap.Cell
	compiler  compiler.Compiler
	funcs     *FunctionRegistry
	listeners *listener.Registry
	logger    *log.Logger
}

// Options configures New. Compiler may be left nil; SetFileBreakpoint
// and the compiler-delta step of Initialize then become no-ops.
type Options struct {
	Compiler compiler.Compiler
	Logger   *log.Logger
}

// New builds a Controller over an already-dialed connection.
func New(conn transport.Connection, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "session: ", 0)
	}

	cell := idmap.NewCell()
	reg := listener.NewRegistry(logger)
	funcs := NewFunctionRegistry()

	c := &Controller{
		id:        uuid.New(),
		conn:      conn,
		cell:      cell,
		compiler:  opts.Compiler,
		funcs:     funcs,
		listeners: reg,
		logger:    logger,
	}

	sink := func(isStderr bool, data []byte) {
		reg.Notify(func(l listener.Listener) {
			if isStderr {
				l.WriteStdErr(0, data)
			} else {
				l.WriteStdOut(0, data)
			}
		})
	}
	demux := wire.NewDemux(wire.NewDecoder(conn.Input()), cell, sink)
	c.eng = engine.New(conn, demux, cell, reg, logger)
	c.eng.SetResolver(funcs.Lookup)

	return c
}

// ID returns the session's correlation id, used only for logging and
// metrics labels — never for multiplexing several debuggees through
// one Controller (spec.md Non-goals).
func (c *Controller) ID() uuid.UUID { return c.id }

// Subscribe adds l to the session's listener fan-out. The same
// registry backs both engine-originated notifications (process stops,
// stdio) and controller-originated ones (breakpoint add/remove), so a
// listener sees every event in wire order through one subscription.
func (c *Controller) Subscribe(l listener.Listener) { c.listeners.Subscribe(l) }

// Unsubscribe removes l from the fan-out.
func (c *Controller) Unsubscribe(l listener.Listener) { c.listeners.Unsubscribe(l) }

// VMState returns the current session lifecycle state.
func (c *Controller) VMState() state.VMState { return c.eng.VMState() }

// ExitCode returns the most recently recorded interactive exit code.
func (c *Controller) ExitCode() int { return c.eng.ExitCode() }

// CurrentProcessID returns the process id recorded by the most recent
// process stop, or 0 if none has been observed yet.
func (c *Controller) CurrentProcessID() int64 { return c.eng.DebugState().CurrentProcessID }

// Handshake negotiates the protocol version. Per spec.md §4.9 this is
// the one operation with its own concurrency: a read goroutine delivers
// the next inbound command through resultCh while the calling goroutine
// re-sends HandShake on a ticker. When the deadline fires first, the
// read goroutine is not cancelled; it stays blocked in ReadOne and its
// result is left unread in the buffered channel.
func (c *Controller) Handshake(ctx context.Context, version string, maxTimeSpent time.Duration) (*command.HandShakeResult, error) {
	if maxTimeSpent <= 0 {
		maxTimeSpent = defaultHandshakeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, maxTimeSpent)
	defer cancel()

	type readResult struct {
		in  command.Inbound
		err error
	}
	resultCh := make(chan readResult, 1)
	go func() {
		in, err := c.eng.ReadOne()
		resultCh <- readResult{in, err}
	}()

	if err := c.eng.Send(ctx, command.HandShake{Version: version}); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(handshakeRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			if res.err != nil {
				return nil, res.err
			}
			if hs, ok := res.in.(command.HandShakeResult); ok {
				return &hs, nil
			}
			return nil, nil
		case <-ticker.C:
			if err := c.eng.Send(ctx, command.HandShake{Version: version}); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, vmerr.ErrHandshakeTimeout
		}
	}
}

// Initialize implements spec.md §4.9's initialize: negotiate debugging
// mode, fetch the VM's function/class table, install the id
// translator for snapshot mode or apply pending compiler deltas for
// live-editing mode, then spawn the process if it has not already
// been spawned.
func (c *Controller) Initialize(ctx context.Context, snapshotLocation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.Debugging{}))
	if err != nil {
		return err
	}
	dbg, ok := reply.(command.DebuggingReply)
	if !ok {
		return &vmerr.ProtocolViolation{Context: "initialize", Got: 0, Want: 1}
	}

	// The snapshot-hash precondition is checked before the extra
	// programInfo round trip below, purely from the dbg reply and the
	// local info file, so a mismatch fails fast without requiring the
	// VM to answer a request the session is about to abandon anyway.
	var info idmap.NameOffsetMapping
	if dbg.IsFromSnapshot {
		info, err = idmap.LoadNameOffsetMapping(idmap.InfoPathFor(snapshotLocation))
		if err != nil {
			return err
		}
		if info.SnapshotHash != dbg.SnapshotHash {
			return &vmerr.SnapshotHashMismatch{Got: dbg.SnapshotHash, Want: info.SnapshotHash}
		}
	}

	functions, classes, err := c.fetchProgramInfo(ctx)
	if err != nil {
		return err
	}
	for _, fn := range functions {
		c.funcs.Register(fn.ID, fn.Name, fn.Visible)
	}

	if dbg.IsFromSnapshot {
		c.installSnapshotTranslator(info, functions, classes)
	} else {
		if _, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.LiveEditing{})); err != nil {
			return err
		}
		if err := c.applyPendingDeltas(ctx); err != nil {
			return err
		}
	}

	if !c.eng.VMState().IsSpawned() {
		return c.spawnProcessLocked(ctx, nil)
	}
	return nil
}

// fetchProgramInfo requests the VM's current function/class table and
// decodes it. setBreakpoint-by-name and backtrace frame visibility
// both depend on FunctionRegistry having been populated from this
// before any operation that needs it runs.
func (c *Controller) fetchProgramInfo(ctx context.Context) ([]command.ProgramFunctionEntry, []command.ProgramClassEntry, error) {
	reply, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProgramInfoRequest{}))
	if err != nil {
		return nil, nil, err
	}
	info, ok := reply.(command.ProgramInfoCommand)
	if !ok {
		return nil, nil, &vmerr.ProtocolViolation{Context: "initialize: programInfo", Got: codeOf(reply), Want: int(command.CodeProgramInfo)}
	}
	functions, classes, err := info.Decode()
	if err != nil {
		return nil, nil, err
	}
	return functions, classes, nil
}

// installSnapshotTranslator folds the info file's symbolic offsets
// together with the VM-reported function/class ids into the session's
// translation Cell. Called only once the snapshot-hash precondition
// above has already been confirmed.
func (c *Controller) installSnapshotTranslator(info idmap.NameOffsetMapping, functions []command.ProgramFunctionEntry, classes []command.ProgramClassEntry) {
	vmFunctionIDs := make(map[string]int64, len(functions))
	for _, fn := range functions {
		vmFunctionIDs[fn.Name] = fn.ID
	}
	vmClassIDs := make(map[string]int64, len(classes))
	for _, cl := range classes {
		vmClassIDs[cl.Name] = cl.ID
	}

	mapping := idmap.BuildMapping(info, vmFunctionIDs, vmClassIDs)
	c.cell.Set(idmap.NewOffset(mapping))
}

func (c *Controller) applyPendingDeltas(ctx context.Context) error {
	if c.compiler == nil {
		return nil
	}
	for _, delta := range c.compiler.PendingDeltas() {
		if _, err := c.eng.RunCommands(ctx, delta.Commands); err != nil {
			return err
		}
	}
	return nil
}

// SpawnProcess implements spec.md §4.9's spawnProcess.
func (c *Controller) SpawnProcess(ctx context.Context, args []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawnProcessLocked(ctx, args)
}

func (c *Controller) spawnProcessLocked(ctx context.Context, args []string) error {
	if _, err := c.eng.RunOne(ctx, command.MustGenericSafe(command.ProcessSpawnForMain{Args: args})); err != nil {
		return err
	}
	if err := c.eng.Transition("spawnProcess", state.Spawned); err != nil {
		return err
	}
	c.eng.Notify(func(l listener.Listener) {
		l.PauseStart(0)
		l.ProcessRunnable(0)
	})
	return nil
}

// StartRunning implements spec.md §4.9's startRunning: send
// ProcessRun, announce the running transition, then read the next
// reply and route it through process-stop handling like any other
// stop (ProcessRun is manual precisely so this method controls when
// that happens, instead of leaving it implicit inside run_commands).
func (c *Controller) StartRunning(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.eng.VMState().IsSpawned() {
		return &vmerr.PreconditionError{Op: "startRunning", Want: "spawned"}
	}

	if err := c.eng.Send(ctx, command.ProcessRun{}); err != nil {
		return err
	}
	if err := c.eng.Transition("startRunning", state.Running); err != nil {
		return err
	}
	c.eng.Notify(func(l listener.Listener) {
		l.ProcessStart(0)
		l.ProcessRunnable(0)
		l.Resume(0)
	})

	_, err := c.eng.ReadOne()
	return err
}

// Cont resumes a paused process (the "cont" operation named in
// spec.md §4.7's transition table).
func (c *Controller) Cont(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.eng.VMState().IsPaused() {
		return &vmerr.PreconditionError{Op: "cont", Want: "paused"}
	}
	if err := c.eng.Send(ctx, command.ProcessContinue{}); err != nil {
		return err
	}
	if err := c.eng.Transition("cont", state.Running); err != nil {
		return err
	}
	c.eng.Notify(func(l listener.Listener) { l.Resume(0) })

	_, err := c.eng.ReadOne()
	return err
}

// Interrupt implements spec.md §4.9's interrupt: fire-and-forget, no
// reply awaited.
func (c *Controller) Interrupt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eng.Send(ctx, command.ProcessDebugInterrupt{})
}
