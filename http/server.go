// Package http serves the predictor forms, their JSON twins and the live
// stop visit session.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP server
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig server settings
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DefaultServerConfig default server settings
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8501,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 16,
	}
}

// NewServer wires the handler behind the middleware chain.
func NewServer(config ServerConfig, h *Handler, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewRouter(config, h, logger),
			ReadHeaderTimeout: config.Timeout,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
		logger: logger,
	}
}

// NewRouter returns the routes wrapped in the middleware chain.
func NewRouter(config ServerConfig, h *Handler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)

	chain := Chain(
		RecoveryMiddleware(logger), // outermost, catches panics
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.Timeout),
		RequestSizeMiddleware(config.MaxBodyBytes),
	)
	return chain(mux)
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("stop_form", fmt.Sprintf("http://localhost%s/stop", s.server.Addr)),
		zap.String("live", fmt.Sprintf("ws://localhost%s/ws/stop", s.server.Addr)),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts down gracefully
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
