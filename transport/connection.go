// Package transport supplies Connection, the byte-stream abstraction
// the engine consumes (spec.md §6), plus concrete adapters. The core
// protocol driver never depends on net.Conn or websocket.Conn
// directly — only on this interface — keeping the transport a
// consumed collaborator exactly as spec.md scopes it.
package transport

import "io"

// Connection is the duplex byte stream the Request/Reply Engine reads
// frames from and writes commands to.
type Connection interface {
	Input() io.Reader
	Output() io.Writer
	Close() error
	Done() <-chan struct{}
	Description() string
}
