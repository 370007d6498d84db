package grpcapi

import (
	"time"

	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
)

// WriteRequest asks the coordinator to replicate a new record
type WriteRequest struct {
	ChannelID   string `json:"channel_id"`
	AuthorID    string `json:"author_id"`
	Content     string `json:"content"`
	Consistency string `json:"consistency,omitempty"`
}

// WriteResponse reports a coordinated write. Success is false when the level was not met.
type WriteResponse struct {
	ID           model.RecordID `json:"id"`
	Success      bool           `json:"success"`
	ReplicaID    int            `json:"replica_id"`
	Acked        int            `json:"acked"`
	Required     int            `json:"required"`
	Consistency  string         `json:"consistency"`
	LatencyMs    float64        `json:"latency_ms"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// ReadRequest asks for a record by id
type ReadRequest struct {
	ID          model.RecordID `json:"id"`
	Consistency string         `json:"consistency,omitempty"`
}

// ReadResponse reports a coordinated read
type ReadResponse struct {
	Success      bool          `json:"success"`
	Found        bool          `json:"found"`
	Record       *model.Record `json:"record,omitempty"`
	Stale        bool          `json:"stale"`
	ReplicaID    int           `json:"replica_id"`
	Responses    int           `json:"responses"`
	Required     int           `json:"required"`
	Consistency  string        `json:"consistency"`
	LatencyMs    float64       `json:"latency_ms"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// SetPartitionRequest isolates or heals one replica by 0-based index
type SetPartitionRequest struct {
	Index       int  `json:"index"`
	Partitioned bool `json:"partitioned"`
}

type SetPartitionResponse struct {
	Index       int  `json:"index"`
	Partitioned bool `json:"partitioned"`
}

type MetricsRequest struct{}

// LevelStats is one consistency level's latency window in milliseconds
type LevelStats struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P99Ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

type MetricsResponse struct {
	Levels       map[string]LevelStats `json:"levels"`
	TotalWrites  int64                 `json:"total_writes"`
	FailedWrites int64                 `json:"failed_writes"`
	TotalReads   int64                 `json:"total_reads"`
	FailedReads  int64                 `json:"failed_reads"`
	StaleReads   int64                 `json:"stale_reads"`
}

type ListReplicasRequest struct{}

type ReplicaInfo struct {
	Index         int     `json:"index"`
	ReplicaID     int     `json:"replica_id"`
	Partitioned   bool    `json:"partitioned"`
	Records       int     `json:"records"`
	BaseLatencyMs float64 `json:"base_latency_ms"`
}

type ListReplicasResponse struct {
	ReplicationFactor int           `json:"replication_factor"`
	Replicas          []ReplicaInfo `json:"replicas"`
}

func toMetricsResponse(s metrics.Snapshot) *MetricsResponse {
	resp := &MetricsResponse{
		Levels:       make(map[string]LevelStats, len(model.Levels)),
		TotalWrites:  s.TotalWrites,
		FailedWrites: s.FailedWrites,
		TotalReads:   s.TotalReads,
		FailedReads:  s.FailedReads,
		StaleReads:   s.StaleReads,
	}
	for _, level := range model.Levels {
		stats := s.Stats(level)
		resp.Levels[level.String()] = LevelStats{
			Count: stats.Count,
			AvgMs: model.Milliseconds(stats.Avg),
			P50Ms: model.Milliseconds(stats.P50),
			P99Ms: model.Milliseconds(stats.P99),
			MaxMs: model.Milliseconds(stats.Max),
		}
	}
	return resp
}

func toReplicaInfo(s model.ReplicaStatus) ReplicaInfo {
	return ReplicaInfo{
		Index:         s.Index,
		ReplicaID:     s.ReplicaID,
		Partitioned:   s.Partitioned,
		Records:       s.Records,
		BaseLatencyMs: model.Milliseconds(s.BaseLatency),
	}
}

// Outcome converts a response back into the coordinator's write outcome
func (r *WriteResponse) Outcome(level model.ConsistencyLevel) model.WriteOutcome {
	outcome := model.WriteOutcome{
		ReplicaID:   r.ReplicaID,
		Success:     r.Success,
		Latency:     time.Duration(r.LatencyMs * float64(time.Millisecond)),
		Acked:       r.Acked,
		Required:    r.Required,
		Level:       level,
		ErrorReason: r.ErrorMessage,
	}
	if !r.Success {
		outcome.ReplicaID = model.NoReplica
		outcome.Err = &model.QuorumError{Op: "write", Level: level, Acked: r.Acked, Required: r.Required}
	}
	return outcome
}
