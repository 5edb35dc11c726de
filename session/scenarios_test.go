package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/vmdbg/breakpoint"
	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/vmerr"
)

// recorderListener captures the name of every lifecycle callback it
// receives, in order, plus optional hooks for the two callbacks that
// carry arguments scenario tests need to inspect.
type recorderListener struct {
	listener.BaseListener
	events            *[]string
	onPauseBreakpoint func(processID int64)
	onPauseException  func(processID int64, thrown any)
	onLostConnection  func()
}

func (l recorderListener) record(name string) { *l.events = append(*l.events, name) }

func (l recorderListener) ProcessStart(int64)    { l.record("ProcessStart") }
func (l recorderListener) ProcessRunnable(int64) { l.record("ProcessRunnable") }
func (l recorderListener) ProcessExit(int64)     { l.record("ProcessExit") }
func (l recorderListener) PauseStart(int64)      { l.record("PauseStart") }
func (l recorderListener) Resume(int64)          { l.record("Resume") }

func (l recorderListener) PauseBreakpoint(processID int64, _ listener.RemoteFrame, _ *breakpoint.Breakpoint) {
	l.record("PauseBreakpoint")
	if l.onPauseBreakpoint != nil {
		l.onPauseBreakpoint(processID)
	}
}

func (l recorderListener) PauseException(processID int64, _ listener.RemoteFrame, thrown any) {
	l.record("PauseException")
	if l.onPauseException != nil {
		l.onPauseException(processID, thrown)
	}
}

func (l recorderListener) LostConnection() {
	l.record("LostConnection")
	if l.onLostConnection != nil {
		l.onLostConnection()
	}
}

func TestScenarioS1SpawnRunCleanExit(t *testing.T) {
	ctrl, server := newTestController(t)

	var events []string
	ctrl.Subscribe(recorderListener{events: &events})

	go func() {
		writeFrame(server, command.CodeHandShakeResult, stringPayload("1.0"))
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(false), fixed64(0)))
		writeEmptyProgramInfo(server)
		writeFrame(server, command.CodeProcessTerminated, nil)
	}()

	ctx := context.Background()
	_, err := ctrl.Handshake(ctx, "1.0", 0)
	require.NoError(t, err)

	require.NoError(t, ctrl.Initialize(ctx, ""))
	require.NoError(t, ctrl.StartRunning(ctx))

	assert.Equal(t, state.Terminating, ctrl.VMState())
	assert.Equal(t, vmerr.ExitOK, ctrl.ExitCode())
	assert.Nil(t, ctrl.eng.DebugState().CurrentBackTrace, "current_back_trace must be nulled after any stop")
	assert.Contains(t, events, "ProcessExit")
}

func TestScenarioS2BreakpointHitThenContinue(t *testing.T) {
	ctrl, server := newTestController(t)

	var breakpointHits []int64
	ctrl.Subscribe(recorderListener{events: new([]string), onPauseBreakpoint: func(pid int64) { breakpointHits = append(breakpointHits, pid) }})

	go func() {
		writeFrame(server, command.CodeHandShakeResult, stringPayload("1.0"))
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(false), fixed64(0)))
		writeProgramInfo(server, 10, "main", true)
		writeFrame(server, command.CodeProcessSetBreakpoint, fixed64(77))
		writeFrame(server, command.CodeProcessBreakpoint, concatBytes(fixed64(1), fixed64(77), fixed64(10), fixed32(5)))
		writeFrame(server, command.CodeProcessTerminated, nil)
	}()

	ctx := context.Background()
	_, err := ctrl.Handshake(ctx, "1.0", 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize(ctx, ""))

	bps, err := ctrl.SetBreakpoint(ctx, "main", 5)
	require.NoError(t, err)
	require.Len(t, bps, 1)
	assert.Equal(t, int64(77), bps[0].ID)

	require.NoError(t, ctrl.StartRunning(ctx))
	assert.Equal(t, state.Paused, ctrl.VMState())
	assert.Equal(t, []int64{1}, breakpointHits)

	require.NoError(t, ctrl.Cont(ctx))
	assert.Equal(t, state.Terminating, ctrl.VMState())
}

func TestScenarioS3ConnectionDroppedMidRun(t *testing.T) {
	ctrl, server := newTestController(t)

	var lost bool
	ctrl.Subscribe(recorderListener{events: new([]string), onLostConnection: func() { lost = true }})

	go func() {
		writeFrame(server, command.CodeHandShakeResult, stringPayload("1.0"))
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(false), fixed64(0)))
		writeEmptyProgramInfo(server)
		_ = server.Close()
	}()

	ctx := context.Background()
	_, err := ctrl.Handshake(ctx, "1.0", 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize(ctx, ""))

	err = ctrl.StartRunning(ctx)
	require.NoError(t, err, "a dropped connection surfaces as the ConnectionError sentinel, not a Go error")
	assert.Equal(t, state.Terminating, ctrl.VMState())
	assert.Equal(t, vmerr.ExitConnectionError, ctrl.ExitCode())
	assert.True(t, lost)
}

func TestScenarioS4UncaughtException(t *testing.T) {
	ctrl, server := newTestController(t)

	var caughtPID int64
	var caughtThrown any
	ctrl.Subscribe(recorderListener{
		events: new([]string),
		onPauseException: func(pid int64, thrown any) {
			caughtPID = pid
			caughtThrown = thrown
		},
	})

	go func() {
		writeFrame(server, command.CodeHandShakeResult, stringPayload("1.0"))
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(false), fixed64(0)))
		writeProgramInfo(server, 10, "main", true)
		writeFrame(server, command.CodeUncaughtException, concatBytes(fixed64(1), fixed64(10), fixed32(9)))
		writeFrame(server, command.CodeDartValue, concatBytes([]byte{byte(command.ValueKindInt)}, fixed64(42)))
	}()

	ctx := context.Background()
	_, err := ctrl.Handshake(ctx, "1.0", 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize(ctx, ""))

	require.NoError(t, ctrl.StartRunning(ctx))
	assert.Equal(t, vmerr.ExitUncaughtException, ctrl.ExitCode())

	// handleStop resolves the thrown value itself (spec.md §8 S4), so
	// the PauseException callback must already carry the decoded
	// RemoteValue rather than the raw wire UncaughtException struct.
	assert.Equal(t, int64(1), caughtPID)
	assert.Equal(t, state.RemoteValue{Kind: "int", Int: 42}, caughtThrown)
	assert.Equal(t, &state.RemoteValue{Kind: "int", Int: 42}, ctrl.eng.DebugState().CurrentUncaughtException)
}

func TestScenarioS5StepOutDegradesToCont(t *testing.T) {
	ctrl, server := newTestController(t)

	go func() {
		writeFrame(server, command.CodeHandShakeResult, stringPayload("1.0"))
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(false), fixed64(0)))
		writeProgramInfo(server, 10, "main", true)
		writeFrame(server, command.CodeProcessBreakpoint, concatBytes(fixed64(1), fixed64(0), fixed64(10), fixed32(0)))
		writeFrame(server, command.CodeProcessTerminated, nil)
	}()

	ctx := context.Background()
	_, err := ctrl.Handshake(ctx, "1.0", 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.Initialize(ctx, ""))
	require.NoError(t, ctrl.StartRunning(ctx))
	require.Equal(t, state.Paused, ctrl.VMState())

	ctrl.eng.DebugState().CurrentBackTrace = &state.BackTrace{Frames: []state.Frame{{FunctionID: 10, Visible: true}}}

	require.NoError(t, ctrl.StepOut(ctx), "with <= 1 visible frame, stepOut must degrade to cont rather than loop stepOut")
	assert.Equal(t, state.Terminating, ctrl.VMState())
}

func TestScenarioS6SnapshotHashMismatchFailsInitializeBeforeSpawn(t *testing.T) {
	ctrl, server := newTestController(t)

	dir := t.TempDir()
	snapshotPath := filepath.Join(dir, "app.snapshot")
	infoPath := filepath.Join(dir, "app.info.json")
	require.NoError(t, os.WriteFile(infoPath, []byte(`{"snapshot_hash":111}`), 0o644))

	go func() {
		writeFrame(server, command.CodeDebuggingReply, concatBytes(boolByte(true), fixed64(222)))
	}()

	err := ctrl.Initialize(context.Background(), snapshotPath)
	require.Error(t, err)
	var mismatch *vmerr.SnapshotHashMismatch
	assert.True(t, errors.As(err, &mismatch))
	assert.Equal(t, state.Initial, ctrl.VMState(), "spawnProcess must never be issued after a hash mismatch")
}
