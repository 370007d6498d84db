package model

import (
	"errors"
	"fmt"
)

var (
	// ErrReplicaUnreachable is returned by a partitioned replica
	ErrReplicaUnreachable = errors.New("node partitioned")
	// ErrReplicaOperation marks an unexpected failure inside a replica handler
	ErrReplicaOperation = errors.New("replica operation failed")
	// ErrQuorumTimeout is returned when too few replicas answered before the deadline
	ErrQuorumTimeout = errors.New("quorum timeout")
	// ErrInvalidConsistency is returned for an unknown consistency level
	ErrInvalidConsistency = errors.New("invalid consistency level")
	// ErrNoReplicas is returned when a cluster is built without replicas
	ErrNoReplicas = errors.New("replication factor must be at least 1")
	// ErrReplicaIndex is returned for a replica index outside the cluster
	ErrReplicaIndex = errors.New("replica index out of range")
)

// QuorumError describes a coordinator-level timeout. It unwraps to ErrQuorumTimeout.
type QuorumError struct {
	Op       string
	Level    ConsistencyLevel
	Acked    int
	Required int
}

func (e *QuorumError) Error() string {
	if e.Level == ConsistencyOne {
		return "timeout waiting for any replica"
	}
	unit := "acks"
	if e.Op == "read" {
		unit = "responses"
	}
	return fmt.Sprintf("Timeout: only %d/%d %s", e.Acked, e.Required, unit)
}

// Unwrap lets errors.Is match ErrQuorumTimeout
func (e *QuorumError) Unwrap() error {
	return ErrQuorumTimeout
}
