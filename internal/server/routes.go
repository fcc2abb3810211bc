package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/unicorn/internal/websocket"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Instance    string `json:"instance"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
	// Lifecycle counts connection events seen on the event bus.
	Lifecycle *websocket.LifecycleSnapshot `json:"lifecycle,omitempty"`
}

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	var mw []echo.MiddlewareFunc
	if s.connect > 0 {
		mw = append(mw, connectLimiter(s.connect, s.logger))
	}
	s.E.GET("/ws", s.listener.Handler(), mw...)
	s.E.GET("/health", s.health)
}

func (s *Server) health(c echo.Context) error {
	resp := HealthResponse{
		Status:      "ok",
		Instance:    s.instanceID,
		Version:     s.version,
		Connections: s.clients.Count(),
	}
	if s.stats != nil {
		snap := s.stats.Snapshot()
		resp.Lifecycle = &snap
	}
	return c.JSON(http.StatusOK, resp)
}
