package service

import (
	"context"
	"time"

	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/replica"
)

// Replica is a single storage node as seen by the coordinator
type Replica interface {
	ID() int
	Write(ctx context.Context, rec model.Record) (model.ReplicaWriteResult, error)
	Read(ctx context.Context, id model.RecordID) (model.ReplicaReadResult, error)
	SetPartitioned(partitioned bool)
	IsPartitioned() bool
	Len() int
	BaseLatency() time.Duration
}

// ReplicationService defines the operations exposed to the API layers
type ReplicationService interface {
	Write(rec model.Record, level model.ConsistencyLevel) model.WriteOutcome
	Read(id model.RecordID, level model.ConsistencyLevel) model.ReadOutcome
	SetPartitioned(index int, partitioned bool) error
	Replicas() []model.ReplicaStatus
	MetricsSnapshot() metrics.Snapshot
	ReplicationFactor() int
	Consistency() *ConsistencyService
}

// Ensure implementations satisfy the interfaces
var (
	_ ReplicationService = (*Coordinator)(nil)
	_ Replica            = (*replica.Store)(nil)
)

// ReplicasOf converts a slice of concrete replicas to the interface slice NewCoordinator takes
func ReplicasOf[T Replica](items []T) []Replica {
	out := make([]Replica, len(items))
	for i, r := range items {
		out[i] = r
	}
	return out
}
