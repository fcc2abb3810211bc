// Package app wires the router, protocol, transport and HTTP server together.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/nfrund/unicorn/internal/api"
	"github.com/nfrund/unicorn/internal/config"
	"github.com/nfrund/unicorn/internal/protocol"
	"github.com/nfrund/unicorn/internal/pubsub"
	"github.com/nfrund/unicorn/internal/router"
	"github.com/nfrund/unicorn/internal/server"
	"github.com/nfrund/unicorn/internal/websocket"
)

// Version is reported by the CLI and the health endpoint.
const Version = "0.0.1"

// App is a fully wired API component.
type App struct {
	Config   *config.Config
	Router   *router.Router
	Mux      *protocol.Mux
	Bus      *pubsub.WatermillBridge
	Clients  *websocket.ClientManager
	Stats    *websocket.LifecycleStats
	Listener *websocket.Listener
	Server   *server.Server

	logger          *slog.Logger
	tracingShutdown func()
}

type tracing struct {
	tracer   trace.Tracer
	shutdown func()
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)

	do.Provide(injector, func(i do.Injector) (*tracing, error) {
		tracer, shutdown, err := pubsub.SetupOTel(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		return &tracing{tracer: tracer, shutdown: shutdown}, nil
	})
	do.Provide(injector, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		t, err := do.Invoke[*tracing](i)
		if err != nil {
			return nil, err
		}
		return pubsub.NewWatermillBridge(t.tracer, do.MustInvoke[*slog.Logger](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*router.Router, error) {
		l := do.MustInvoke[*slog.Logger](i)
		return router.New(
			router.NewRegistry(l.With("component", "registry")),
			router.WithCommandBuffer(cfg.Router.CommandBuffer),
			router.WithLogger(l),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*protocol.Mux, error) {
		l := do.MustInvoke[*slog.Logger](i)
		mux := protocol.NewMux(l)
		topics := api.NewTopicHandler(do.MustInvoke[*router.Router](i), l)
		if err := topics.Register(mux); err != nil {
			return nil, err
		}
		return mux, nil
	})
	do.Provide(injector, func(i do.Injector) (*websocket.ClientManager, error) {
		return websocket.NewClientManager(), nil
	})
	do.Provide(injector, func(i do.Injector) (*websocket.LifecycleStats, error) {
		return websocket.NewLifecycleStats(), nil
	})
	do.Provide(injector, func(i do.Injector) (*websocket.Listener, error) {
		return websocket.NewListener(
			do.MustInvoke[*protocol.Mux](i),
			do.MustInvoke[*websocket.ClientManager](i),
			do.MustInvoke[*pubsub.WatermillBridge](i),
			websocket.Options{
				SendBuffer:     cfg.Router.SendBuffer,
				ReadLimit:      cfg.Router.ReadLimit,
				OriginPatterns: cfg.Router.OriginPatterns,
			},
			do.MustInvoke[*slog.Logger](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*server.Server, error) {
		return server.New(server.Dependencies{
			Listener:    do.MustInvoke[*websocket.Listener](i),
			Clients:     do.MustInvoke[*websocket.ClientManager](i),
			Stats:       do.MustInvoke[*websocket.LifecycleStats](i),
			Version:     Version,
			Logger:      do.MustInvoke[*slog.Logger](i),
			ConnectRate: cfg.Router.ConnectRate,
		}), nil
	})

	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		return nil, err
	}
	t := do.MustInvoke[*tracing](injector)

	return &App{
		Config:          cfg,
		Router:          do.MustInvoke[*router.Router](injector),
		Mux:             do.MustInvoke[*protocol.Mux](injector),
		Bus:             do.MustInvoke[*pubsub.WatermillBridge](injector),
		Clients:         do.MustInvoke[*websocket.ClientManager](injector),
		Stats:           do.MustInvoke[*websocket.LifecycleStats](injector),
		Listener:        do.MustInvoke[*websocket.Listener](injector),
		Server:          srv,
		logger:          logger,
		tracingShutdown: t.shutdown,
	}, nil
}

// Run serves the API until ctx is cancelled or the router fails. On
// cancellation the server is drained first, then the router is closed and
// finishes the commands already queued. A router failure is returned; a clean
// shutdown returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if err := a.Stats.Subscribe(ctx, a.Bus); err != nil {
		return err
	}

	routerErr := make(chan error, 1)
	go func() { routerErr <- a.Router.Run(context.WithoutCancel(ctx)) }()
	serverErr := make(chan error, 1)
	go func() { serverErr <- a.Server.Start(ctx, a.Config.Service(config.APIService).Address()) }()

	a.logger.Info("API running",
		"instance", a.Server.InstanceID(),
		"methods", a.Mux.Methods(),
	)

	select {
	case err := <-routerErr:
		a.logger.Error("Router failed, shutting down", "error", err)
		cancel()
		<-serverErr
		return err

	case err := <-serverErr:
		// Every connection is closed; late submissions get ErrRouterClosed.
		a.Router.Close()
		if rerr := <-routerErr; !errors.Is(rerr, router.ErrCommandChannelClosed) {
			a.logger.Warn("Router stopped unexpectedly", "error", rerr)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func (a *App) close() {
	if err := a.Bus.Close(); err != nil {
		a.logger.Warn("Failed to close event bus", "error", err)
	}
	a.tracingShutdown()
}
