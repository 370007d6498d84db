package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluxchat/consistency-sim/internal/mocks"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newHealthCheck(partitioned ...bool) *HealthCheck {
	svc := new(mocks.MockReplicationService)
	statuses := make([]model.ReplicaStatus, len(partitioned))
	for i, p := range partitioned {
		statuses[i] = model.ReplicaStatus{Index: i, ReplicaID: i + 1, Partitioned: p}
	}
	svc.On("Replicas").Return(statuses)
	svc.On("ReplicationFactor").Return(len(partitioned))
	svc.On("Consistency").Return(service.NewConsistencyService(model.ConsistencyQuorum))
	return NewHealthCheck(svc, zap.NewNop())
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	newHealthCheck(false).LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name        string
		partitioned []bool
		wantCode    int
		wantBody    string
	}{
		{name: "all reachable", partitioned: []bool{false, false, false}, wantCode: http.StatusOK, wantBody: `"ready"`},
		{name: "quorum reachable", partitioned: []bool{false, false, true}, wantCode: http.StatusOK, wantBody: "2/3 reachable"},
		{name: "quorum lost", partitioned: []bool{false, true, true}, wantCode: http.StatusServiceUnavailable, wantBody: "only 1/2 replicas reachable"},
		{name: "five replicas, majority up", partitioned: []bool{false, true, false, true, false}, wantCode: http.StatusOK, wantBody: "3/5 reachable"},
		{name: "five replicas, majority down", partitioned: []bool{true, true, false, true, false}, wantCode: http.StatusServiceUnavailable, wantBody: "only 2/3 replicas reachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newHealthCheck(tt.partitioned...).ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
