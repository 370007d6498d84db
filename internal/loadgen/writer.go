// Package loadgen drives batches of coordinated writes and summarizes them.
package loadgen

import (
	"context"
	"time"

	"github.com/fluxchat/consistency-sim/internal/grpcapi"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
)

// Message is the payload of one generated write
type Message struct {
	ChannelID string
	AuthorID  string
	Content   string
}

// Writer performs one coordinated write
type Writer interface {
	Write(ctx context.Context, msg Message, level model.ConsistencyLevel) model.WriteOutcome
}

// WriterFunc adapts a function to Writer
type WriterFunc func(ctx context.Context, msg Message, level model.ConsistencyLevel) model.WriteOutcome

// Write calls f
func (f WriterFunc) Write(ctx context.Context, msg Message, level model.ConsistencyLevel) model.WriteOutcome {
	return f(ctx, msg, level)
}

// IDGenerator hands out record ids
type IDGenerator interface {
	NextID() model.RecordID
}

// LocalWriter writes through an in-process coordinator
type LocalWriter struct {
	svc service.ReplicationService
	ids IDGenerator
}

func NewLocalWriter(svc service.ReplicationService, ids IDGenerator) *LocalWriter {
	return &LocalWriter{svc: svc, ids: ids}
}

// Write ignores ctx; the coordinator bounds every write by its own deadline.
func (w *LocalWriter) Write(_ context.Context, msg Message, level model.ConsistencyLevel) model.WriteOutcome {
	rec := model.NewRecord(w.ids.NextID(), msg.ChannelID, msg.AuthorID, msg.Content)
	return w.svc.Write(rec, level)
}

// RemoteWriter writes through a coordinator's gRPC API
type RemoteWriter struct {
	client *grpcapi.Client
}

func NewRemoteWriter(client *grpcapi.Client) *RemoteWriter {
	return &RemoteWriter{client: client}
}

func (w *RemoteWriter) Write(ctx context.Context, msg Message, level model.ConsistencyLevel) model.WriteOutcome {
	start := time.Now()
	resp, err := w.client.Write(ctx, &grpcapi.WriteRequest{
		ChannelID:   msg.ChannelID,
		AuthorID:    msg.AuthorID,
		Content:     msg.Content,
		Consistency: level.String(),
	})
	if err != nil {
		return model.WriteOutcome{
			ReplicaID:   model.NoReplica,
			Level:       level,
			Latency:     time.Since(start),
			Err:         err,
			ErrorReason: err.Error(),
		}
	}
	return resp.Outcome(level)
}
