package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const defaultCommandBuffer = 1024

var (
	// ErrRouterClosed is returned by Submit after Close.
	ErrRouterClosed = errors.New("router closed")
	// ErrRouterStopped is returned by Submit once Run has returned.
	ErrRouterStopped = errors.New("router stopped")
	// ErrNilCommand is returned by Submit for a nil command.
	ErrNilCommand = errors.New("nil router command")
	// ErrCommandChannelClosed is returned by Run when the command channel is
	// closed underneath it. Callers should treat it as fatal.
	ErrCommandChannelClosed = errors.New("router command channel closed")
)

// Option configures a Router.
type Option func(*Router)

// WithCommandBuffer sets the capacity of the command channel.
func WithCommandBuffer(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.bufferSize = n
		}
	}
}

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Router owns a Registry and applies commands to it, in the order they were
// submitted, from a single goroutine.
type Router struct {
	registry   *Registry
	commands   chan Command
	done       chan struct{}
	bufferSize int
	logger     *slog.Logger

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// New creates a router around registry. Run must be started for submitted
// commands to take effect.
func New(registry *Registry, opts ...Option) *Router {
	r := &Router{
		registry:   registry,
		bufferSize: defaultCommandBuffer,
		logger:     slog.Default(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "router")
	r.commands = make(chan Command, r.bufferSize)
	return r
}

// Submit enqueues cmd and returns without waiting for it to be applied. It
// blocks only while the command buffer is full.
func (r *Router) Submit(cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRouterClosed
	}

	select {
	case <-r.done:
		return ErrRouterStopped
	default:
	}

	select {
	case r.commands <- cmd:
		return nil
	case <-r.done:
		return ErrRouterStopped
	}
}

// Close stops accepting commands and closes the command channel. The owner
// calls it once every producer is gone. Run applies the commands already
// queued and then returns ErrCommandChannelClosed.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.commands)
}

// Run applies commands until ctx is cancelled or the command channel is
// closed. It must be called at most once.
func (r *Router) Run(ctx context.Context) error {
	defer r.stopOnce.Do(func() { close(r.done) })

	r.logger.Info("Router started", "command_buffer", r.bufferSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Router stopped", "reason", ctx.Err(), "topics", r.registry.TopicCount())
			return ctx.Err()

		case cmd, ok := <-r.commands:
			if !ok {
				r.logger.Error("Command channel closed, router cannot continue", "topics", r.registry.TopicCount())
				return ErrCommandChannelClosed
			}
			if err := r.registry.Apply(cmd); err != nil {
				r.logger.Error("Failed to apply command", "kind", cmd.Kind(), "error", err)
			}
		}
	}
}
