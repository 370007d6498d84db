package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServerConfig describes the scrape listener.
type ServerConfig struct {
	Port int
	Path string
}

// SnapshotSource returns the current latency summary, usually
// Coordinator.MetricsSnapshot.
type SnapshotSource func() Snapshot

// Server exposes the Prometheus registry and, when a source is set, the
// latency snapshot as JSON at /snapshot. It runs apart from the API port so
// scrapes are not subject to the API rate limiter.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(cfg ServerConfig, m *Prometheus, snapshot SnapshotSource, logger *zap.Logger) *Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, Handler(m))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "scrape_path": path})
	})
	if snapshot != nil {
		mux.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, snapshot())
		})
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the scrape handler for m, or the default registry's when m
// has none.
func Handler(m *Prometheus) http.Handler {
	if reg := m.Registry(); reg != nil {
		return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	return promhttp.Handler()
}

// Start listens on the configured port and serves until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("metrics endpoint listening", zap.Stringer("addr", lis.Addr()))
	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("metrics endpoint stopping")
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
