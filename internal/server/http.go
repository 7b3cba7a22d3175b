// Package server exposes CPFSK runs over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Server is the HTTP server for the API.
type Server struct {
	mux     *http.ServeMux
	handler *Handlers
	metrics *Metrics
	http    *http.Server
	logger  *log.Logger
}

// NewServer creates a new HTTP server.
func NewServer(addr string, handler *Handlers, metrics *Metrics, logger *log.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}
	s.setupRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("/api/modulate", s.handler.HandleModulate)
	s.mux.HandleFunc("/api/plot", s.handler.HandlePlot)
	s.mux.HandleFunc("/api/defaults", s.handler.HandleDefaults)

	// WebSocket
	s.mux.HandleFunc("/ws", s.handler.HandleWebSocket)

	s.mux.Handle("/metrics", s.metrics.Handler())
}

// Handler returns the routed handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, closes WebSocket clients and waits for
// in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.handler.Hub().CloseAll()
	return s.http.Shutdown(ctx)
}
