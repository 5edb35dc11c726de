package wire

import (
	"errors"

	"github.com/lookbusy1344/vmdbg/command"
	"github.com/lookbusy1344/vmdbg/idmap"
)

// StdioSink receives stdio bytes swallowed out of the reply stream.
// isStderr distinguishes StderrData from StdoutData frames.
type StdioSink func(isStderr bool, data []byte)

// Demux separates out-of-band stdout/stderr frames from reply frames,
// per spec.md §4.3. It runs inside the inbound stream iterator: every
// decoded frame either is swallowed (stdio, dispatched to sink) or
// decoded into a command.Inbound and returned to the caller. Swallowing
// preserves reply counts: stdio frames are never counted against a
// command's expected_replies.
type Demux struct {
	dec *Decoder
	tr  idmap.Translator
	sink StdioSink

	closed    bool
	sentinel  command.Inbound
}

// NewDemux builds a Demux over dec. sink is invoked for every stdio
// frame before the next non-stdio frame is returned.
func NewDemux(dec *Decoder, tr idmap.Translator, sink StdioSink) *Demux {
	return &Demux{dec: dec, tr: tr, sink: sink}
}

// Next returns the next non-stdio inbound command. Once the stream
// has terminated, Next returns the same ConnectionError sentinel on
// every subsequent call (idempotent), per spec.md §4.8.
func (d *Demux) Next() (command.Inbound, error) {
	if d.closed {
		return d.sentinel, nil
	}

	for {
		frame, err := d.dec.Next()
		if err != nil {
			d.closed = true
			d.sentinel = command.ConnectionError{}
			return d.sentinel, nil
		}

		if frame.Code.IsStdio() {
			d.dispatchStdio(frame)
			continue
		}

		inbound, err := command.Decode(frame.Code, frame.Payload, d.tr)
		if err != nil {
			d.closed = true
			d.sentinel = command.ConnectionError{}
			return d.sentinel, nil
		}
		return inbound, nil
	}
}

func (d *Demux) dispatchStdio(frame Frame) {
	switch frame.Code {
	case commandStdout:
		out, err := command.Decode(frame.Code, frame.Payload, d.tr)
		if err == nil {
			if v, ok := out.(command.StdoutData); ok {
				d.sink(false, v.Bytes)
			}
		}
	case commandStderr:
		out, err := command.Decode(frame.Code, frame.Payload, d.tr)
		if err == nil {
			if v, ok := out.(command.StderrData); ok {
				d.sink(true, v.Bytes)
			}
		}
	}
}

const (
	commandStdout = command.CodeStdoutData
	commandStderr = command.CodeStderrData
)

// IsClosed reports whether the underlying stream has already
// terminated (used by Engine to avoid re-entering a dead Demux).
func (d *Demux) IsClosed() bool { return d.closed }

// ErrDecoderClosed is a convenience sentinel error for callers that
// prefer an error return over inspecting IsClosed; Demux.Next itself
// never returns it (it returns the ConnectionError value instead),
// it exists purely for callers building their own thin wrappers.
var ErrDecoderClosed = errors.New("wire: decoder closed")
