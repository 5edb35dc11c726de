package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
)

// TCPConnection adapts a net.Conn to transport.Connection.
type TCPConnection struct {
	conn net.Conn
	addr string

	once sync.Once
	done chan struct{}
}

// Dial connects to a VM listening at addr over TCP.
func Dial(ctx context.Context, addr string) (*TCPConnection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &TCPConnection{conn: conn, addr: addr, done: make(chan struct{})}, nil
}

func (c *TCPConnection) Input() io.Reader  { return c.conn }
func (c *TCPConnection) Output() io.Writer { return c.conn }

func (c *TCPConnection) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

func (c *TCPConnection) Done() <-chan struct{} { return c.done }

func (c *TCPConnection) Description() string {
	return fmt.Sprintf("tcp://%s", c.addr)
}
