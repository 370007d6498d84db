package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_Endpoints(t *testing.T) {
	prom := NewPrometheus()
	prom.RecordQuorumFailure("write", "ALL")

	lm := NewLatencyMetrics(DefaultWindowSize)
	lm.RecordWrite(model.ConsistencyQuorum, model.WriteOutcome{Success: true, Latency: 4 * time.Millisecond})

	srv := NewServer(ServerConfig{Path: "/scrape"}, prom, lm.Snapshot, zap.NewNop())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(lis) }()

	base := "http://" + lis.Addr().String()
	get := func(path string) (int, string) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/scrape")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `flux_coordinator_quorum_failures_total{consistency="ALL",operation="write"} 1`)

	code, body = get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"scrape_path":"/scrape"`)

	code, body = get("/snapshot")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"totalWrites":1`)
	assert.Contains(t, body, `"quorumStats":{"count":1`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}

func TestServer_NoSnapshotSource(t *testing.T) {
	srv := NewServer(ServerConfig{}, NewPrometheus(), nil, zap.NewNop())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + lis.Addr().String() + "/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
