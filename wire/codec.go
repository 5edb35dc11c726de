// Package wire implements the length-prefixed binary frame codec:
// encoding outbound commands to a byte sink, and decoding the inbound
// byte stream into (code, payload) frames. Grounded on the teacher's
// encoder package (stateless transform functions, typed wrapped
// errors) and on its api/websocket.go read/write framing discipline,
// retargeted from ARM machine-code words to length-prefixed command
// frames.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/idmap"
)

// maxFrameLength guards against a corrupt or hostile length prefix
// forcing an unbounded allocation.
const maxFrameLength = 64 << 20

// Frame is a decoded (code, payload) pair, prior to typed decoding of
// the payload by command.Decode.
type Frame struct {
	Code    command.Code
	Payload []byte
}

// FrameError wraps a framing/IO failure with the context of what the
// codec was doing, mirroring encoder.EncodingError's
// context-plus-wrapped-error shape.
type FrameError struct {
	Context string
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Context, e.Wrapped)
}

func (e *FrameError) Unwrap() error { return e.Wrapped }

// Encode writes cmd as a length-prefixed frame: a 4-byte big-endian
// length covering (code + payload), one code byte, then the
// serialized payload.
func Encode(w io.Writer, tr idmap.Translator, cmd command.Outbound) error {
	var payload bufWriter
	if err := cmd.Serialize(&payload, tr); err != nil {
		return &FrameError{Context: "serializing " + cmd.Code().String(), Wrapped: err}
	}

	length := uint32(1 + len(payload.buf))
	var header [5]byte
	binary.BigEndian.PutUint32(header[0:4], length)
	header[4] = byte(cmd.Code())

	if _, err := w.Write(header[:]); err != nil {
		return &FrameError{Context: "writing frame header", Wrapped: err}
	}
	if _, err := w.Write(payload.buf); err != nil {
		return &FrameError{Context: "writing frame payload", Wrapped: err}
	}
	return nil
}

// bufWriter is a minimal growable byte sink implementing io.Writer,
// used so Encode never needs bytes.Buffer's extra surface.
type bufWriter struct{ buf []byte }

func (b *bufWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Decoder decodes a lazy, restart-free sequence of frames from an
// underlying byte stream, terminating on connection close or decode
// failure.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for frame-at-a-time decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// ErrConnectionClosed is returned (wrapped) by Next when the
// underlying stream ends, whether cleanly or mid-frame.
var ErrConnectionClosed = fmt.Errorf("wire: connection closed")

// Next reads and returns the next frame. Once it returns an error, the
// Decoder must not be used again; the caller (wire.Demux) surfaces
// this as the ConnectionError sentinel.
func (d *Decoder) Next() (Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 || length > maxFrameLength {
		return Frame{}, &FrameError{Context: "decoding frame header", Wrapped: fmt.Errorf("invalid frame length %d", length)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	return Frame{Code: command.Code(body[0]), Payload: body[1:]}, nil
}
