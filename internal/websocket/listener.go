package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/unicorn/internal/protocol"
	"github.com/nfrund/unicorn/internal/pubsub"
	"github.com/nfrund/unicorn/internal/router"
)

// Dispatcher handles one inbound frame and returns the response to send
// back, or nil.
type Dispatcher interface {
	Handle(conn router.Sender, raw []byte) *protocol.Response
}

// Options tune per-connection behaviour.
type Options struct {
	// SendBuffer is the number of outbound messages queued per client.
	SendBuffer int
	// ReadLimit caps the size of an inbound frame in bytes.
	ReadLimit int64
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// OriginPatterns restricts cross-origin handshakes. Empty allows any origin.
	OriginPatterns []string
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		SendBuffer:   256,
		ReadLimit:    64 << 10,
		WriteTimeout: 10 * time.Second,
	}
}

// Listener accepts WebSocket connections, gives each one an id and a Client
// handle, and feeds inbound frames to a Dispatcher.
type Listener struct {
	dispatcher Dispatcher
	manager    *ClientManager
	publisher  pubsub.Publisher
	opts       Options
	logger     *slog.Logger
	closing    atomic.Bool
}

// NewListener creates a Listener. publisher may be nil, in which case no
// lifecycle events are published.
func NewListener(dispatcher Dispatcher, manager *ClientManager, publisher pubsub.Publisher, opts Options, logger *slog.Logger) *Listener {
	defaults := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaults.ReadLimit
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		dispatcher: dispatcher,
		manager:    manager,
		publisher:  publisher,
		opts:       opts,
		logger:     logger.With("component", "websocket"),
	}
}

// Handler returns the echo handler that upgrades requests to WebSocket.
func (l *Listener) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if l.closing.Load() {
			return c.String(http.StatusServiceUnavailable, "server shutting down")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: len(l.opts.OriginPatterns) == 0,
			OriginPatterns:     l.opts.OriginPatterns,
		})
		if err != nil {
			// Accept has already written the HTTP error.
			l.logger.Warn("Failed to upgrade connection to WebSocket", "error", err)
			return nil
		}
		conn.SetReadLimit(l.opts.ReadLimit)

		client := NewClient(l.manager.NextID(), conn, l.opts.SendBuffer)
		client.RemoteAddr = c.RealIP()
		l.manager.Add(client)

		go l.writePump(client)

		l.logger.Info("Client connected", "connection_id", client.ID, "remote_addr", client.RemoteAddr, "connections", l.manager.Count())
		// ready must be published before readPump can publish disconnected.
		l.publish(TopicClientReady, ClientEvent{ConnectionID: client.ID, RemoteAddr: client.RemoteAddr})

		go l.readPump(client)
		return nil
	}
}

// Shutdown stops accepting connections and closes every live one.
func (l *Listener) Shutdown() {
	l.closing.Store(true)

	var wg sync.WaitGroup
	for _, client := range l.manager.GetAll() {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}(client)
	}
	wg.Wait()
}

func (l *Listener) publish(event pubsub.Event[ClientEvent], payload ClientEvent) {
	if l.publisher == nil {
		return
	}
	if err := event.Publish(context.Background(), l.publisher, payload); err != nil {
		l.logger.Error("Failed to publish lifecycle event", "topic", event.Topic(), "error", err)
	}
}

// readPump decodes inbound frames until the connection ends. Topics that
// hold this client are not told about the disconnect; sends to it fail.
func (l *Listener) readPump(c *Client) {
	reason := ReasonClientClosed
	defer func() {
		l.manager.Remove(c.ID)
		c.conn.Close(websocket.StatusNormalClosure, "")
		l.logger.Info("Client disconnected", "connection_id", c.ID, "reason", reason, "connections", l.manager.Count())
		l.publish(TopicClientDisconnected, ClientEvent{ConnectionID: c.ID, RemoteAddr: c.RemoteAddr, Reason: reason})
	}()

	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case l.closing.Load():
				reason = ReasonServerClosing
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, io.EOF):
				reason = ReasonClientClosed
			default:
				reason = ReasonReadError
				l.logger.Warn("WebSocket read error", "connection_id", c.ID, "error", err)
			}
			return
		}

		resp := l.dispatcher.Handle(c, data)
		if resp == nil {
			continue
		}
		out, err := resp.Marshal()
		if err != nil {
			l.logger.Error("Failed to encode response", "connection_id", c.ID, "error", err)
			continue
		}
		if err := c.Send(out); err != nil {
			l.logger.Warn("Dropping response", "connection_id", c.ID, "event", resp.Event, "error", err)
		}
	}
}

// writePump writes queued messages until the client is closed.
func (l *Listener) writePump(c *Client) {
	for msg := range c.outbound {
		ctx, cancel := context.WithTimeout(context.Background(), l.opts.WriteTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			l.logger.Warn("WebSocket write error", "connection_id", c.ID, "error", err)
			c.conn.Close(websocket.StatusInternalError, "write failed")
			return
		}
	}
}
