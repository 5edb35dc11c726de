package session

import (
	"fmt"
	"io"
	"testing"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/transport"
)

// writeFrame writes one length-prefixed (code, payload) frame to a
// scripted VM's output, the same wire shape wire.Encode produces.
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

func stringPayload(s string) []byte {
	b := []byte(s)
	n := len(b)
	buf := make([]byte, 4+n)
	buf[0] = byte(n >> 24)
	buf[1] = byte(n >> 16)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	copy(buf[4:], b)
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

func boolByte(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// writeEmptyProgramInfo scripts the reply to the unconditional
// programInfo round trip Initialize now issues, for scenarios that
// don't need any function registered.
func writeEmptyProgramInfo(srv *transport.FakeServer) {
	writeFrame(srv, command.CodeProgramInfo, []byte(`{"functions":[],"classes":[]}`))
}

// writeProgramInfo scripts a programInfo reply carrying one function
// table row, for scenarios that exercise setBreakpoint by name or
// backtrace frame resolution against a real function id.
func writeProgramInfo(srv *transport.FakeServer, id int64, name string, visible bool) {
	payload := fmt.Sprintf(`{"functions":[{"id":%d,"name":%q,"visible":%t}],"classes":[]}`, id, name, visible)
	writeFrame(srv, command.CodeProgramInfo, []byte(payload))
}

// newTestController builds a Controller wired to a scripted VM. The
// returned FakeServer's Input is drained continuously in the
// background so the controller's fire-and-forget and manual sends
// never block on an unread pipe.
func newTestController(t *testing.T) (*Controller, *transport.FakeServer) {
	t.Helper()
	client, server := transport.NewFakePair()
	t.Cleanup(func() { _ = client.Close() })

	go func() { _, _ = io.Copy(io.Discard, server.Input()) }()

	ctrl := New(client, Options{})
	return ctrl, server
}
