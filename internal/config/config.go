package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/replica"
	"github.com/fluxchat/consistency-sim/internal/service"
)

// Config represents the simulator configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server" envPrefix:"SERVER_"`
	GRPC        GRPCConfig        `mapstructure:"grpc" yaml:"grpc" envPrefix:"GRPC_"`
	Cluster     ClusterConfig     `mapstructure:"cluster" yaml:"cluster" envPrefix:"CLUSTER_"`
	Consistency ConsistencyConfig `mapstructure:"consistency" yaml:"consistency" envPrefix:"CONSISTENCY_"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter" yaml:"rate_limiter" envPrefix:"RATE_LIMITER_"`
	Seed        SeedConfig        `mapstructure:"seed" yaml:"seed" envPrefix:"SEED_"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging" envPrefix:"LOG_"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" env:"HOST"`
	Port            int           `mapstructure:"port" yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	EnableCORS      bool          `mapstructure:"enable_cors" yaml:"enable_cors" env:"ENABLE_CORS"`
}

// GRPCConfig represents gRPC server configuration
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" env:"ENABLED"`
	Port    int  `mapstructure:"port" yaml:"port" env:"PORT"`
}

// ClusterConfig describes the simulated replicas
type ClusterConfig struct {
	ReplicationFactor int           `mapstructure:"replication_factor" yaml:"replication_factor" env:"REPLICATION_FACTOR"`
	BaseLatency       time.Duration `mapstructure:"base_latency" yaml:"base_latency" env:"BASE_LATENCY"`
	Jitter            time.Duration `mapstructure:"jitter" yaml:"jitter" env:"JITTER"`
	NodeID            int           `mapstructure:"node_id" yaml:"node_id" env:"NODE_ID"`
}

// ConsistencyConfig represents consistency level configuration
type ConsistencyConfig struct {
	DefaultLevel       string        `mapstructure:"default_level" yaml:"default_level" env:"DEFAULT_LEVEL"`
	OneTimeout         time.Duration `mapstructure:"one_timeout" yaml:"one_timeout" env:"ONE_TIMEOUT"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" env:"READ_TIMEOUT"`
	ReplicaReadTimeout time.Duration `mapstructure:"replica_read_timeout" yaml:"replica_read_timeout" env:"REPLICA_READ_TIMEOUT"`
	ReadResolution     string        `mapstructure:"read_resolution" yaml:"read_resolution" env:"READ_RESOLUTION"`
	VerifyLateReads    bool          `mapstructure:"verify_late_reads" yaml:"verify_late_reads" env:"VERIFY_LATE_READS"`
	VerifierWorkers    int           `mapstructure:"verifier_workers" yaml:"verifier_workers" env:"VERIFIER_WORKERS"`
	VerifierQueue      int           `mapstructure:"verifier_queue" yaml:"verifier_queue" env:"VERIFIER_QUEUE"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled" env:"ENABLED"`
	Port       int    `mapstructure:"port" yaml:"port" env:"PORT"`
	Path       string `mapstructure:"path" yaml:"path" env:"PATH"`
	WindowSize int    `mapstructure:"window_size" yaml:"window_size" env:"WINDOW_SIZE"`
}

// RateLimiterConfig represents HTTP rate limiting configuration
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled" env:"ENABLED"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int     `mapstructure:"burst" yaml:"burst" env:"BURST"`
}

// SeedConfig controls the writes issued at startup
type SeedConfig struct {
	Writes   int           `mapstructure:"writes" yaml:"writes" env:"WRITES"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval" env:"INTERVAL"`
	Level    string        `mapstructure:"level" yaml:"level" env:"LEVEL"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" env:"LEVEL"`
	Format string `mapstructure:"format" yaml:"format" env:"FORMAT"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return errors.New("grpc.port must be between 1 and 65535")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	if c.Cluster.ReplicationFactor < 1 {
		return errors.New("cluster.replication_factor must be at least 1")
	}
	if c.Cluster.BaseLatency < 0 || c.Cluster.Jitter < 0 {
		return errors.New("cluster.base_latency and cluster.jitter must not be negative")
	}
	if c.Cluster.NodeID < 0 || c.Cluster.NodeID > 1023 {
		return errors.New("cluster.node_id must be between 0 and 1023")
	}
	if c.Consistency.DefaultLevel == "" {
		c.Consistency.DefaultLevel = "quorum"
	}
	if _, err := model.ParseConsistencyLevel(c.Consistency.DefaultLevel); err != nil {
		return fmt.Errorf("consistency.default_level: %w", err)
	}
	if _, err := service.ParseReadResolution(c.Consistency.ReadResolution); err != nil {
		return fmt.Errorf("consistency.read_resolution: %w", err)
	}
	if c.Consistency.OneTimeout <= 0 || c.Consistency.WriteTimeout <= 0 ||
		c.Consistency.ReadTimeout <= 0 || c.Consistency.ReplicaReadTimeout <= 0 {
		return errors.New("consistency timeouts must be positive")
	}
	if c.RateLimiter.Enabled && (c.RateLimiter.RequestsPerSecond <= 0 || c.RateLimiter.Burst <= 0) {
		return errors.New("rate_limiter.requests_per_second and rate_limiter.burst must be positive")
	}
	if c.Seed.Writes < 0 {
		return errors.New("seed.writes must not be negative")
	}
	if c.Seed.Level == "" {
		c.Seed.Level = "quorum"
	}
	if _, err := model.ParseConsistencyLevel(c.Seed.Level); err != nil {
		return fmt.Errorf("seed.level: %w", err)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// ReplicaConfig returns the per-replica simulation parameters
func (c *Config) ReplicaConfig() replica.Config {
	return replica.Config{
		BaseLatency: c.Cluster.BaseLatency,
		Jitter:      c.Cluster.Jitter,
	}
}

// CoordinatorOptions converts the consistency section into coordinator options
func (c *Config) CoordinatorOptions() (service.Options, error) {
	level, err := model.ParseConsistencyLevel(c.Consistency.DefaultLevel)
	if err != nil {
		return service.Options{}, err
	}
	resolution, err := service.ParseReadResolution(c.Consistency.ReadResolution)
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		OneTimeout:         c.Consistency.OneTimeout,
		WriteTimeout:       c.Consistency.WriteTimeout,
		ReadTimeout:        c.Consistency.ReadTimeout,
		ReplicaReadTimeout: c.Consistency.ReplicaReadTimeout,
		DefaultLevel:       level,
		ReadResolution:     resolution,
		VerifyLateReads:    c.Consistency.VerifyLateReads,
		VerifierWorkers:    c.Consistency.VerifierWorkers,
		VerifierQueue:      c.Consistency.VerifierQueue,
	}, nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			EnableCORS:      true,
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Port:    50051,
		},
		Cluster: ClusterConfig{
			ReplicationFactor: 3,
			BaseLatency:       replica.DefaultBaseLatency,
			Jitter:            replica.DefaultJitter,
			NodeID:            1,
		},
		Consistency: ConsistencyConfig{
			DefaultLevel:       "quorum",
			OneTimeout:         100 * time.Millisecond,
			WriteTimeout:       150 * time.Millisecond,
			ReadTimeout:        150 * time.Millisecond,
			ReplicaReadTimeout: 50 * time.Millisecond,
			ReadResolution:     string(service.ResolveFirstPresent),
			VerifyLateReads:    true,
			VerifierWorkers:    4,
			VerifierQueue:      1024,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			Port:       9090,
			Path:       "/metrics",
			WindowSize: 1000,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           false,
			RequestsPerSecond: 500,
			Burst:             1000,
		},
		Seed: SeedConfig{
			Writes:   30,
			Interval: 10 * time.Millisecond,
			Level:    "quorum",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
