package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fluxchat/consistency-sim/internal/util/workerpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Recording(t *testing.T) {
	m := NewPrometheus()

	m.RecordRequest("write", "QUORUM", true, 0.004)
	m.RecordRequest("write", "QUORUM", false, 0.15)
	m.RecordQuorumFailure("write", "QUORUM")
	m.RecordStaleRead()
	m.RecordReplicaOperation(2, "read", false)
	m.SetReplicaPartitioned(3, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("write", "QUORUM", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("write", "QUORUM", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuorumFailures.WithLabelValues("write", "QUORUM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleReads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicaOperations.WithLabelValues("2", "read", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicaPartitioned.WithLabelValues("3")))

	m.SetReplicaPartitioned(3, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ReplicaPartitioned.WithLabelValues("3")))
}

func TestPrometheus_NilIsNoop(t *testing.T) {
	var m *Prometheus
	assert.NotPanics(t, func() {
		m.RecordRequest("read", "ONE", true, 0.001)
		m.RecordQuorumFailure("read", "ONE")
		m.RecordStaleRead()
		m.RecordReplicaOperation(1, "read", true)
		m.SetReplicaPartitioned(1, true)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler_ServesPrivateRegistry(t *testing.T) {
	m := NewPrometheus()
	m.RecordStaleRead()

	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flux_coordinator_stale_reads_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPrometheus_ObserveVerifier(t *testing.T) {
	m := NewPrometheus()
	stats := func() workerpool.Stats {
		return workerpool.Stats{Active: 2, Queued: 1, QueueSize: 4, Completed: 5, Rejected: 3}
	}
	m.ObserveVerifier(stats)
	assert.NotPanics(t, func() { m.ObserveVerifier(stats) })

	expected := `
# HELP flux_verifier_active_workers Verifier workers running a job
# TYPE flux_verifier_active_workers gauge
flux_verifier_active_workers 2
# HELP flux_verifier_jobs_rejected_total Late-read verifications skipped because the queue was full
# TYPE flux_verifier_jobs_rejected_total counter
flux_verifier_jobs_rejected_total 3
# HELP flux_verifier_queue_utilization_percent Verifier queue occupancy
# TYPE flux_verifier_queue_utilization_percent gauge
flux_verifier_queue_utilization_percent 25
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"flux_verifier_active_workers", "flux_verifier_jobs_rejected_total", "flux_verifier_queue_utilization_percent"))

	var nilMetrics *Prometheus
	assert.NotPanics(t, func() { nilMetrics.ObserveVerifier(stats) })
}
