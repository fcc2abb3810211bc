package websocket

import (
	"errors"
	"sync"

	"github.com/coder/websocket"
)

var (
	// ErrClientClosed is returned when sending to a disconnected client.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned when a client's outbound buffer is full.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client represents a single connected WebSocket client. It is the
// connection handle stored in topics and is safe for concurrent use.
type Client struct {
	ID         uint64
	RemoteAddr string

	conn     *websocket.Conn
	outbound <-chan []byte

	mu   sync.RWMutex
	send chan []byte
}

// NewClient creates a client with an outbound buffer of bufferSize messages.
func NewClient(id uint64, conn *websocket.Conn, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	send := make(chan []byte, bufferSize)
	return &Client{
		ID:       id,
		conn:     conn,
		send:     send,
		outbound: send,
	}
}

// Send queues msg for delivery without blocking.
func (c *Client) Send(msg []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// A nil channel means the client is disconnected.
	if c.send == nil {
		return ErrClientClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close closes the outbound buffer. Later sends fail with ErrClientClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

// closed reports whether Close has been called.
func (c *Client) closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.send == nil
}
