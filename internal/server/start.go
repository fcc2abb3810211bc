package server

import (
	"context"
	"errors"
	"net/http"
)

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
// It returns the first serving error, or the shutdown error.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr, "instance", s.instanceID)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	return s.Shutdown()
}
