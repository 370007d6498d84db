package grpcapi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// ClientConfig configures the connection to a coordinator
type ClientConfig struct {
	Target           string
	MaxRetries       int
	RetryBackoff     time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// DefaultClientConfig returns client defaults for target
func DefaultClientConfig(target string) ClientConfig {
	return ClientConfig{
		Target:           target,
		MaxRetries:       2,
		RetryBackoff:     50 * time.Millisecond,
		KeepaliveTime:    30 * time.Second,
		KeepaliveTimeout: 10 * time.Second,
	}
}

// Client calls the Coordinator service
type Client struct {
	conn   *grpc.ClientConn
	cfg    ClientConfig
	logger *zap.Logger
}

// NewClient creates a client for cfg.Target. Extra dial options are appended to the defaults.
func NewClient(cfg ClientConfig, logger *zap.Logger, extra ...grpc.DialOption) (*Client, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("no coordinator target provided")
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	return &Client{conn: conn, cfg: cfg, logger: logger}, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// HealthCheck asks the standard health service whether the coordinator is serving
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx,
		&healthpb.HealthCheckRequest{Service: ServiceName},
		grpc.CallContentSubtype("proto"))
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("coordinator not serving: %s", resp.GetStatus())
	}
	return nil
}

// Write calls the Write RPC with retry logic
func (c *Client) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	resp := new(WriteResponse)
	return resp, c.invoke(ctx, methodWrite, req, resp)
}

// Read calls the Read RPC with retry logic
func (c *Client) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	resp := new(ReadResponse)
	return resp, c.invoke(ctx, methodRead, req, resp)
}

// SetPartition calls the SetPartition RPC with retry logic
func (c *Client) SetPartition(ctx context.Context, req *SetPartitionRequest) (*SetPartitionResponse, error) {
	resp := new(SetPartitionResponse)
	return resp, c.invoke(ctx, methodSetPartition, req, resp)
}

// Metrics calls the Metrics RPC with retry logic
func (c *Client) Metrics(ctx context.Context) (*MetricsResponse, error) {
	resp := new(MetricsResponse)
	return resp, c.invoke(ctx, methodMetrics, &MetricsRequest{}, resp)
}

// ListReplicas calls the ListReplicas RPC with retry logic
func (c *Client) ListReplicas(ctx context.Context) (*ListReplicasResponse, error) {
	resp := new(ListReplicasResponse)
	return resp, c.invoke(ctx, methodListReplicas, &ListReplicasRequest{}, resp)
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.withRetry(ctx, func() error {
		return c.conn.Invoke(ctx, fullMethod(method), req, resp)
	})
}

// withRetry wraps a gRPC call with exponential backoff on retryable codes.
func (c *Client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		c.logger.Warn("gRPC call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return lastErr
}

// isRetryable determines if an error is retryable.
func isRetryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
