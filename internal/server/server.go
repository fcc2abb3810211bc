package server

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/unicorn/internal/websocket"
)

// Dependencies are the components the HTTP server exposes.
type Dependencies struct {
	Listener *websocket.Listener
	Clients  *websocket.ClientManager
	// Stats, when set, is reported on /health.
	Stats   *websocket.LifecycleStats
	Version string
	Logger  *slog.Logger
	// ConnectRate limits /ws upgrades per second per IP when positive.
	ConnectRate float64
}

// Server holds the echo instance and the components behind its routes.
type Server struct {
	E          *echo.Echo
	listener   *websocket.Listener
	clients    *websocket.ClientManager
	stats      *websocket.LifecycleStats
	instanceID string
	version    string
	connect    float64
	logger     *slog.Logger
}

// New creates a Server with its middleware and routes registered.
func New(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	setupErrorHandling(e, logger)

	s := &Server{
		E:          e,
		listener:   deps.Listener,
		clients:    deps.Clients,
		stats:      deps.Stats,
		instanceID: uuid.NewString(),
		version:    deps.Version,
		connect:    deps.ConnectRate,
		logger:     logger,
	}
	s.RegisterRoutes()
	return s
}

// InstanceID identifies this process in health output and logs.
func (s *Server) InstanceID() string {
	return s.instanceID
}
