package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConnection adapts a gorilla/websocket connection to
// transport.Connection by piping binary messages through an io.Pipe
// in each direction. Grounded on the teacher's api/websocket.go
// readPump/writePump goroutine pair, retargeted from JSON broadcast
// messages to raw binary frame bytes so the wire codec can treat it
// exactly like a TCPConnection.
type WebSocketConnection struct {
	conn *websocket.Conn
	url  string

	inR *io.PipeReader
	inW *io.PipeWriter

	outR *io.PipeReader
	outW *io.PipeWriter

	once sync.Once
	done chan struct{}
}

const wsWriteWait = 10 * time.Second

// DialWebSocket connects to a VM exposing its debug protocol over a
// WebSocket binary stream.
func DialWebSocket(ctx context.Context, url string) (*WebSocketConnection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial websocket %s: %w", url, err)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	c := &WebSocketConnection{
		conn: conn, url: url,
		inR: inR, inW: inW,
		outR: outR, outW: outW,
		done: make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// readPump copies inbound binary WebSocket messages into inW, which
// Input() exposes as a plain io.Reader to wire.Decoder.
func (c *WebSocketConnection) readPump() {
	defer c.inW.Close()
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if _, err := c.inW.Write(data); err != nil {
			return
		}
	}
}

// writePump reads the bytes written via Output() off outR and relays
// each read (one Write call, up to 64 KiB) as one binary WebSocket
// message; wire.Encode's header and payload Writes therefore go out as
// two messages.
func (c *WebSocketConnection) writePump() {
	defer c.conn.Close()
	buf := make([]byte, 64*1024)
	for {
		n, err := c.outR.Read(buf)
		if n > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if werr := c.conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *WebSocketConnection) Input() io.Reader  { return c.inR }
func (c *WebSocketConnection) Output() io.Writer { return c.outW }

func (c *WebSocketConnection) Close() error {
	c.once.Do(func() { close(c.done) })
	_ = c.outW.Close()
	return c.conn.Close()
}

func (c *WebSocketConnection) Done() <-chan struct{} { return c.done }

func (c *WebSocketConnection) Description() string {
	return fmt.Sprintf("ws://%s", c.url)
}
