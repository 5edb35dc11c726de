package engine

import (
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/vmdbg/breakpoint"
	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/idmap"
	"github.com/lookbusy1344/vmdbg/listener"
	"github.com/lookbusy1344/vmdbg/state"
	"github.com/lookbusy1344/vmdbg/transport"
	"github.com/lookbusy1344/vmdbg/vmerr"
	"github.com/lookbusy1344/vmdbg/wire"
)

func writeFrame(srv *transport.FakeServer, code command.Code, payload []byte) {
	header := make([]byte, 5+len(payload))
	length := 1 + len(payload)
	header[0] = byte(length >> 24)
	header[1] = byte(length >> 16)
	header[2] = byte(length >> 8)
	header[3] = byte(length)
	header[4] = byte(code)
	copy(header[5:], payload)
	if _, err := srv.Output().Write(header); err != nil {
		panic(err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *transport.FakeServer, *listener.Registry) {
	t.Helper()
	client, server := transport.NewFakePair()
	t.Cleanup(func() { _ = client.Close() })

	demux := wire.NewDemux(wire.NewDecoder(client.Input()), idmap.Identity{}, func(bool, []byte) {})
	reg := listener.NewRegistry(log.New(testWriter{t}, "", 0))
	e := New(client, demux, idmap.Identity{}, reg, log.New(testWriter{t}, "", 0))
	return e, server, reg
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRunCommandsReadsExactReplyCountAndSkipsStdio(t *testing.T) {
	e, server, _ := newTestEngine(t)

	go func() {
		writeFrame(server, command.CodeStdoutData, stdioPayload([]byte("noise")))
		writeFrame(server, command.CodeProcessNumberOfStacks, fixed32(3))
	}()

	cmd := command.MustGenericSafe(command.ProcessAddFibersToMap{ProcessID: 1, Map: "fibers"})
	reply, err := e.RunOne(context.Background(), cmd)
	require.NoError(t, err)
	got, ok := reply.(command.ProcessNumberOfStacks)
	require.True(t, ok)
	assert.Equal(t, 3, got.Value)
}

func stdioPayload(data []byte) []byte {
	n := len(data)
	buf := make([]byte, 4+n)
	buf[0] = byte(n >> 24)
	buf[1] = byte(n >> 16)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	copy(buf[4:], data)
	return buf
}

func fixed32(v int32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func fixed64(v int64) []byte {
	return []byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	}
}

func TestHandleStopOnBreakpointTransitionsToPausedAndNotifies(t *testing.T) {
	e, server, reg := newTestEngine(t)
	e.SetResolver(func(id int64) (string, bool, bool) { return "main", true, true })
	e.vmState = state.Running // breakpoint pause is only legal from running

	var notified []int64
	reg.Subscribe(recordingListener{onPauseBreakpoint: func(pid int64) { notified = append(notified, pid) }})

	e.debug.Breakpoints.Add(7, breakpoint.FunctionRef{ID: 100, Name: "main"}, 2, false)

	var payload []byte
	payload = append(payload, fixed64(1)...)   // process id
	payload = append(payload, fixed64(7)...)   // breakpoint id
	payload = append(payload, fixed64(100)...) // function id
	payload = append(payload, fixed32(2)...)   // bytecode index
	go writeFrame(server, command.CodeProcessBreakpoint, payload)

	reply, err := e.ReadOne()
	require.NoError(t, err)
	assert.IsType(t, command.ProcessBreakpoint{}, reply)

	assert.Equal(t, state.Paused, e.VMState())
	assert.Equal(t, vmerr.ExitOK, e.ExitCode())
	assert.Equal(t, []int64{1}, notified)
	require.NotNil(t, e.DebugState().TopFrame)
	assert.Equal(t, int64(100), e.DebugState().TopFrame.FunctionID)
}

func TestHandleStopOnConnectionErrorTransitionsToTerminatingAndNotifies(t *testing.T) {
	e, server, reg := newTestEngine(t)

	var lost bool
	reg.Subscribe(recordingListener{onLostConnection: func() { lost = true }})

	require.NoError(t, server.Close())

	reply, err := e.ReadOne()
	require.NoError(t, err)
	assert.IsType(t, command.ConnectionError{}, reply)
	assert.Equal(t, state.Terminating, e.VMState())
	assert.Equal(t, vmerr.ExitConnectionError, e.ExitCode())
	assert.True(t, lost)
}

func TestSendRejectsEverythingOnceTerminated(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.vmState = state.Terminated

	err := e.Send(context.Background(), command.ProcessDebugInterrupt{})
	assert.ErrorIs(t, err, vmerr.ErrSessionTerminated)

	_, err = e.RunOne(context.Background(), command.MustGenericSafe(command.ProcessAddFibersToMap{ProcessID: 1, Map: "fibers"}))
	assert.ErrorIs(t, err, vmerr.ErrSessionTerminated)
}

func TestReadOneResetsDebugStateOnEveryStop(t *testing.T) {
	e, server, _ := newTestEngine(t)
	e.debug.CurrentFrameNumber = 4

	go writeFrame(server, command.CodeProcessTerminated, nil)

	_, err := e.ReadOne()
	require.NoError(t, err)
	assert.Equal(t, 0, e.DebugState().CurrentFrameNumber)
}

// recordingListener lets each test observe only the callbacks it cares
// about without implementing the full Listener surface by hand.
type recordingListener struct {
	listener.BaseListener
	onPauseBreakpoint func(processID int64)
	onLostConnection  func()
}

func (l recordingListener) PauseBreakpoint(processID int64, _ listener.RemoteFrame, _ *breakpoint.Breakpoint) {
	if l.onPauseBreakpoint != nil {
		l.onPauseBreakpoint(processID)
	}
}

func (l recordingListener) LostConnection() {
	if l.onLostConnection != nil {
		l.onLostConnection()
	}
}
