// Package health provides liveness and readiness endpoints.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fluxchat/consistency-sim/internal/service"
	"go.uber.org/zap"
)

// HealthCheck reports process liveness and cluster readiness.
type HealthCheck struct {
	svc    service.ReplicationService
	logger *zap.Logger
}

// NewHealthCheck creates a new HealthCheck instance.
func NewHealthCheck(svc service.ReplicationService, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		svc:    svc,
		logger: logger,
	}
}

// LivenessResponse represents the response for the liveness check.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the response for the readiness check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// LivenessHandler handles GET /health requests.
func (hc *HealthCheck) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Status: "healthy"})
}

// Reachable returns the number of replicas that are not partitioned and the
// number the default consistency level requires.
func (hc *HealthCheck) Reachable() (reachable, required int, err error) {
	for _, status := range hc.svc.Replicas() {
		if !status.Partitioned {
			reachable++
		}
	}
	consistency := hc.svc.Consistency()
	required, err = consistency.RequiredAcks(consistency.DefaultLevel(), hc.svc.ReplicationFactor())
	return reachable, required, err
}

// ReadinessHandler handles GET /ready requests.
// Ready means enough replicas are reachable to satisfy the default consistency level.
func (hc *HealthCheck) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	reachable, required, err := hc.Reachable()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Error: err.Error()})
		return
	}

	consistency := hc.svc.Consistency()
	level := consistency.DefaultLevel()
	checks := map[string]string{
		"replicas":    fmt.Sprintf("%d/%d reachable", reachable, hc.svc.ReplicationFactor()),
		"consistency": fmt.Sprintf("%s requires %d", level, required),
	}

	if !consistency.IsQuorumReached(reachable, hc.svc.ReplicationFactor(), level) {
		hc.logger.Warn("Cluster not ready",
			zap.Int("reachable", reachable),
			zap.Int("required", required))
		writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status: "not_ready",
			Checks: checks,
			Error:  fmt.Sprintf("only %d/%d replicas reachable", reachable, required),
		})
		return
	}

	writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Checks: checks})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
