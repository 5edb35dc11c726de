package transport

import (
	"io"
	"sync"
)

// Fake is an in-memory duplex connection pair used to script a fake
// VM for tests (spec.md §8 end-to-end scenarios). NewFakePair returns
// the client-facing Connection the controller dials, and the
// server-facing FakeServer the test drives to script VM behavior.
type Fake struct {
	in  *io.PipeReader
	out *io.PipeWriter

	once sync.Once
	done chan struct{}
}

// FakeServer is the VM-side half of a Fake connection pair: its
// Output feeds the client's Input, and its Input drains the client's
// Output.
type FakeServer struct {
	in  *io.PipeReader
	out *io.PipeWriter
}

// NewFakePair builds a connected client/server pair.
func NewFakePair() (*Fake, *FakeServer) {
	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()

	client := &Fake{in: clientIn, out: clientOut, done: make(chan struct{})}
	server := &FakeServer{in: serverIn, out: serverOut}
	return client, server
}

func (f *Fake) Input() io.Reader  { return f.in }
func (f *Fake) Output() io.Writer { return f.out }

func (f *Fake) Close() error {
	f.once.Do(func() { close(f.done) })
	_ = f.out.Close()
	return f.in.Close()
}

func (f *Fake) Done() <-chan struct{} { return f.done }

func (f *Fake) Description() string { return "fake://test" }

func (s *FakeServer) Input() io.Reader  { return s.in }
func (s *FakeServer) Output() io.Writer { return s.out }

// Close closes both pipe halves the server owns; used when a test
// scenario simulates the connection dropping mid-run (spec.md §8 S3).
func (s *FakeServer) Close() error {
	_ = s.out.Close()
	return s.in.Close()
}

var _ Connection = (*Fake)(nil)
