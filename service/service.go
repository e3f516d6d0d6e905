// Package service serves health and metrics endpoints while a command runs.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/op-testrun/metrics"
)

const shutdownTimeout = 5 * time.Second

// Service exposes /healthz and /metrics on one listener
type Service struct {
	log      log.Logger
	server   *http.Server
	listener net.Listener
}

// New creates a service for addr. It does not listen until Start is called.
func New(addr string, logger log.Logger) *Service {
	if logger == nil {
		logger = log.New()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return &Service{
		log: logger,
		server: &http.Server{
			Handler:           c.Handler(mux),
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start listens on the configured address and serves in the background
func (s *Service) Start() error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = l
	s.log.Info("Starting status server", "addr", l.Addr().String())

	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Status server failed", "err", err)
			metrics.RecordErrorDetails("status_server", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Service) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Shutdown stops the server
func (s *Service) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Warn("Status server shutdown failed", "err", err)
		return
	}
	s.log.Info("Status server stopped")
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}
