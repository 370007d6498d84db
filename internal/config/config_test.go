package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Cluster.ReplicationFactor)
	assert.Equal(t, 5*time.Millisecond, cfg.Cluster.BaseLatency)
	assert.Equal(t, 10*time.Millisecond, cfg.Cluster.Jitter)
	assert.Equal(t, "quorum", cfg.Consistency.DefaultLevel)
	assert.Equal(t, 150*time.Millisecond, cfg.Consistency.WriteTimeout)
	assert.Equal(t, 30, cfg.Seed.Writes)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
cluster:
  replication_factor: 5
  base_latency: 2ms
consistency:
  default_level: all
  read_resolution: latest_timestamp
logging:
  level: debug
`)
	t.Setenv("FLUX_CLUSTER_REPLICATION_FACTOR", "7")
	t.Setenv("FLUX_LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Cluster.ReplicationFactor, "environment wins over file")
	assert.Equal(t, 2*time.Millisecond, cfg.Cluster.BaseLatency)
	assert.Equal(t, 10*time.Millisecond, cfg.Cluster.Jitter, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	opts, err := cfg.CoordinatorOptions()
	require.NoError(t, err)
	assert.Equal(t, model.ConsistencyAll, opts.DefaultLevel)
	assert.Equal(t, service.ResolveLatestTimestamp, opts.ReadResolution)
	assert.Equal(t, 50*time.Millisecond, opts.ReplicaReadTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("FLUX_CLUSTER_REPLICATION_FACTOR", "three")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero replicas", mutate: func(c *Config) { c.Cluster.ReplicationFactor = 0 }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Consistency.DefaultLevel = "most" }, wantErr: true},
		{name: "bad resolution", mutate: func(c *Config) { c.Consistency.ReadResolution = "vector" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "node id", mutate: func(c *Config) { c.Cluster.NodeID = 1024 }, wantErr: true},
		{name: "negative jitter", mutate: func(c *Config) { c.Cluster.Jitter = -time.Millisecond }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Consistency.ReadTimeout = 0 }, wantErr: true},
		{name: "rate limiter without burst", mutate: func(c *Config) {
			c.RateLimiter.Enabled = true
			c.RateLimiter.Burst = 0
		}, wantErr: true},
		{name: "empty level defaults", mutate: func(c *Config) { c.Consistency.DefaultLevel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMarshal_IsLoadable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cluster.ReplicationFactor = 4
	cfg.Consistency.ReadTimeout = 200 * time.Millisecond

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "replication_factor: 4")
	assert.Contains(t, string(data), "read_timeout: 200ms")

	loaded, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
