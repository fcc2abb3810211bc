package server

import (
	"context"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Shutdown closes every WebSocket connection and then stops the HTTP server.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")
	s.listener.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.E.Shutdown(ctx)
}
