package model

import (
	"encoding/json"
	"time"
)

// NoReplica marks an outcome that no replica answered
const NoReplica = -1

// ReplicaWriteResult is a single replica's acknowledgment
type ReplicaWriteResult struct {
	ReplicaID int
	Latency   time.Duration
}

// ReplicaReadResult is a single replica's read response. Record is nil when absent.
type ReplicaReadResult struct {
	ReplicaID int
	Record    *Record
	Latency   time.Duration
}

// WriteOutcome is produced once per coordinated write
type WriteOutcome struct {
	ReplicaID   int
	Success     bool
	Latency     time.Duration
	Acked       int
	Required    int
	Level       ConsistencyLevel
	Err         error
	ErrorReason string
}

// ReadOutcome is produced once per coordinated read.
// Record is nil both for "not found" (Success=true) and for an insufficient quorum (Success=false).
type ReadOutcome struct {
	ReplicaID   int
	Record      *Record
	Found       bool
	Success     bool
	IsStale     bool
	Latency     time.Duration
	Responses   int
	Required    int
	Level       ConsistencyLevel
	Err         error
	ErrorReason string
}

// ReplicaStatus is a point-in-time view of one replica
type ReplicaStatus struct {
	Index       int           `json:"index"`
	ReplicaID   int           `json:"replica_id"`
	Partitioned bool          `json:"partitioned"`
	Records     int           `json:"records"`
	BaseLatency time.Duration `json:"-"`
}

// MarshalJSON renders latency in milliseconds
func (s ReplicaStatus) MarshalJSON() ([]byte, error) {
	type alias ReplicaStatus
	return json.Marshal(struct {
		alias
		BaseLatencyMs float64 `json:"base_latency_ms"`
	}{alias(s), Milliseconds(s.BaseLatency)})
}

// Milliseconds converts a duration to fractional milliseconds
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
