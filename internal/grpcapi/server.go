package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// IDGenerator hands out record ids for new writes
type IDGenerator interface {
	NextID() model.RecordID
}

// Server serves the Coordinator and standard health services
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	port       int
	logger     *zap.Logger
}

// NewServer creates a gRPC server backed by svc
func NewServer(port int, svc service.ReplicationService, ids IDGenerator, logger *zap.Logger) *Server {
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(logger),
			loggingInterceptor(logger),
		),
	)

	RegisterCoordinatorServer(grpcServer, &coordinatorHandler{svc: svc, ids: ids, logger: logger})

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		port:       port,
		logger:     logger,
	}
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	return s.Serve(lis)
}

// Serve serves on lis until Shutdown
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", zap.String("address", lis.Addr().String()))
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting calls and waits for in-flight ones until ctx expires
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("gRPC server stop timeout, forcing shutdown")
		s.grpcServer.Stop()
	}
}

type coordinatorHandler struct {
	svc    service.ReplicationService
	ids    IDGenerator
	logger *zap.Logger
}

func (h *coordinatorHandler) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	if err := validateWriteRequest(req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	level, err := h.svc.Consistency().NormalizeConsistencyLevel(req.Consistency)
	if err != nil {
		return nil, toStatus(err)
	}

	rec := model.NewRecord(h.ids.NextID(), req.ChannelID, req.AuthorID, req.Content)
	outcome := h.svc.Write(rec, level)
	if outcome.Err != nil && !errors.Is(outcome.Err, model.ErrQuorumTimeout) {
		return nil, toStatus(outcome.Err)
	}

	return &WriteResponse{
		ID:           rec.ID,
		Success:      outcome.Success,
		ReplicaID:    outcome.ReplicaID,
		Acked:        outcome.Acked,
		Required:     outcome.Required,
		Consistency:  level.String(),
		LatencyMs:    model.Milliseconds(outcome.Latency),
		ErrorMessage: outcome.ErrorReason,
	}, nil
}

func (h *coordinatorHandler) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	level, err := h.svc.Consistency().NormalizeConsistencyLevel(req.Consistency)
	if err != nil {
		return nil, toStatus(err)
	}

	outcome := h.svc.Read(req.ID, level)
	if outcome.Err != nil && !errors.Is(outcome.Err, model.ErrQuorumTimeout) {
		return nil, toStatus(outcome.Err)
	}

	return &ReadResponse{
		Success:      outcome.Success,
		Found:        outcome.Found,
		Record:       outcome.Record,
		Stale:        outcome.IsStale,
		ReplicaID:    outcome.ReplicaID,
		Responses:    outcome.Responses,
		Required:     outcome.Required,
		Consistency:  level.String(),
		LatencyMs:    model.Milliseconds(outcome.Latency),
		ErrorMessage: outcome.ErrorReason,
	}, nil
}

func (h *coordinatorHandler) SetPartition(ctx context.Context, req *SetPartitionRequest) (*SetPartitionResponse, error) {
	if err := h.svc.SetPartitioned(req.Index, req.Partitioned); err != nil {
		return nil, toStatus(err)
	}
	h.logger.Info("Replica partition updated",
		zap.Int("index", req.Index),
		zap.Bool("partitioned", req.Partitioned))
	return &SetPartitionResponse{Index: req.Index, Partitioned: req.Partitioned}, nil
}

func (h *coordinatorHandler) Metrics(ctx context.Context, _ *MetricsRequest) (*MetricsResponse, error) {
	return toMetricsResponse(h.svc.MetricsSnapshot()), nil
}

func (h *coordinatorHandler) ListReplicas(ctx context.Context, _ *ListReplicasRequest) (*ListReplicasResponse, error) {
	statuses := h.svc.Replicas()
	resp := &ListReplicasResponse{
		ReplicationFactor: h.svc.ReplicationFactor(),
		Replicas:          make([]ReplicaInfo, 0, len(statuses)),
	}
	for _, s := range statuses {
		resp.Replicas = append(resp.Replicas, toReplicaInfo(s))
	}
	return resp, nil
}

func validateWriteRequest(req *WriteRequest) error {
	switch {
	case req.ChannelID == "":
		return errors.New("channel_id is required")
	case req.AuthorID == "":
		return errors.New("author_id is required")
	case req.Content == "":
		return errors.New("content is required")
	}
	return nil
}

// toStatus maps coordinator errors to gRPC status codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidConsistency):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrReplicaIndex):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrQuorumTimeout):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call completed", fields...)
		}
		return resp, err
	}
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}
