// Package server provides the HTTP server for the simulator API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fluxchat/consistency-sim/internal/config"
	apierrors "github.com/fluxchat/consistency-sim/internal/errors"
	"github.com/fluxchat/consistency-sim/internal/handler"
	"github.com/fluxchat/consistency-sim/internal/health"
	"github.com/fluxchat/consistency-sim/internal/middleware"
	"github.com/fluxchat/consistency-sim/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	handlers     *handler.Handlers
	healthCheck  *health.HealthCheck
	errorHandler *apierrors.Handler
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server with its routes configured.
func NewServer(cfg *config.Config, svc service.ReplicationService, ids handler.IDGenerator, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	errorHandler := apierrors.NewHandler(logger)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		handlers:     handler.NewHandlers(svc, ids, errorHandler, logger),
		healthCheck:  health.NewHealthCheck(svc, logger),
		errorHandler: errorHandler,
		logger:       logger,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.errorHandler, s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	}
	if s.cfg.Server.EnableCORS {
		middlewareChain = append(middlewareChain, middleware.CORS([]string{"*"}))
	}
	if s.cfg.RateLimiter.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.Burst,
			s.errorHandler,
			s.logger,
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}
	s.router.Use(mux.MiddlewareFunc(middleware.Chain(middlewareChain...)))

	// Health check endpoints
	s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)

	// Routes stay on the root router: mux loses a subrouter's method mismatch
	// when a later subrouter fails to match, turning 405s into 404s.
	s.router.HandleFunc("/v1/records", s.handlers.WriteRecord).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/records/{id}", s.handlers.ReadRecord).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/replicas", s.handlers.ListReplicas).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/replicas/{index:[0-9]+}/partition", s.handlers.SetPartition).Methods(http.MethodPut)
	s.router.HandleFunc("/v1/metrics", s.handlers.Metrics).Methods(http.MethodGet)

	// Dashboard routes
	s.router.HandleFunc("/api/write", s.handlers.LegacyWrite).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/api/partition", s.handlers.LegacyPartition).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/api/metrics", s.handlers.Metrics).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeNotFound, "endpoint not found", r.Header.Get(middleware.RequestIDHeader))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrorCodeMethodNotAllow, "method not allowed", r.Header.Get(middleware.RequestIDHeader))
	})
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
