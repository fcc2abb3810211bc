package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/nfrund/unicorn/internal/router"
)

// Handler processes the payload of one method on behalf of conn.
type Handler interface {
	Handle(conn router.Sender, payload json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(conn router.Sender, payload json.RawMessage) error

func (f HandlerFunc) Handle(conn router.Sender, payload json.RawMessage) error {
	return f(conn, payload)
}

// Mux dispatches requests to handlers by method name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewMux returns an empty Mux. A nil logger falls back to slog.Default.
func NewMux(logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "mux"),
	}
}

// Register binds method to h.
func (m *Mux) Register(method string, h Handler) error {
	if method == "" || h == nil {
		return ErrInvalidMethod
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handlers[method]; ok {
		return ErrMethodExists
	}
	m.handlers[method] = h
	m.logger.Debug("Method registered", "method", method)
	return nil
}

// Methods returns the registered method names in sorted order.
func (m *Mux) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	methods := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		methods = append(methods, name)
	}
	slices.Sort(methods)
	return methods
}

// Handle decodes raw, runs the matching handler and returns the response to
// send back to conn. A nil response means nothing is sent.
func (m *Mux) Handle(conn router.Sender, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		m.logger.Debug("Malformed request", "error", err)
		return NewErrorResponse("", InvalidPayload)
	}
	if req.Method == "" {
		return NewErrorResponse("", InvalidPayload)
	}

	m.mu.RLock()
	h, ok := m.handlers[req.Method]
	m.mu.RUnlock()
	if !ok {
		m.logger.Debug("Method not found", "method", req.Method)
		return NewErrorResponse(req.Method, MethodNotFound)
	}

	err := h.Handle(conn, req.Payload)
	if err == nil {
		return nil
	}
	if kind, ok := KindOf(err); ok {
		m.logger.Debug("Request rejected", "method", req.Method, "kind", kind, "error", err)
		return NewErrorResponse(req.Method, kind)
	}
	if errors.Is(err, router.ErrRouterClosed) || errors.Is(err, router.ErrRouterStopped) {
		m.logger.Warn("Router unavailable, request dropped", "method", req.Method)
		return nil
	}
	m.logger.Error("Handler failed", "method", req.Method, "error", err)
	return nil
}
