package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"social-chat/errors"
)

const readHeaderTimeout = 10 * time.Second

type Server struct {
	log  *slog.Logger
	http *http.Server
}

func NewServer(log *slog.Logger, address string, handler http.Handler) *Server {
	return &Server{
		log: log,
		http: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Serve blocks until the listener fails or Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	s.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
	if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Hijacked websocket connections are not tracked and close with their handler.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
