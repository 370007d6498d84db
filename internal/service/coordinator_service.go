package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/util/workerpool"
	"go.uber.org/zap"
)

const (
	opWrite = "write"
	opRead  = "read"
)

// Options tunes coordinator deadlines and read behavior
type Options struct {
	// OneTimeout bounds ONE writes and reads
	OneTimeout time.Duration
	// WriteTimeout bounds QUORUM and ALL writes
	WriteTimeout time.Duration
	// ReadTimeout bounds QUORUM and ALL reads as a whole
	ReadTimeout time.Duration
	// ReplicaReadTimeout bounds each wait for the next read response
	ReplicaReadTimeout time.Duration

	DefaultLevel   model.ConsistencyLevel
	ReadResolution ReadResolution

	// VerifyLateReads drains responses that arrive after a read resolves and counts disagreement as stale
	VerifyLateReads bool
	VerifierWorkers int
	VerifierQueue   int

	Prometheus *metrics.Prometheus
}

// DefaultOptions returns the standard deadlines
func DefaultOptions() Options {
	return Options{
		OneTimeout:         100 * time.Millisecond,
		WriteTimeout:       150 * time.Millisecond,
		ReadTimeout:        150 * time.Millisecond,
		ReplicaReadTimeout: 50 * time.Millisecond,
		DefaultLevel:       model.ConsistencyQuorum,
		ReadResolution:     ResolveFirstPresent,
		VerifyLateReads:    true,
		VerifierWorkers:    4,
		VerifierQueue:      1024,
	}
}

// Coordinator fans operations out to every replica and resolves them per consistency level
type Coordinator struct {
	replicas    []Replica
	consistency *ConsistencyService
	metrics     *metrics.LatencyMetrics
	prom        *metrics.Prometheus
	verifier    *workerpool.Pool
	opts        Options
	logger      *zap.Logger

	// ctx bounds replica work that outlives a call
	ctx    context.Context
	cancel context.CancelFunc
}

type writeAck struct {
	result model.ReplicaWriteResult
	err    error
}

type readResponse struct {
	result model.ReplicaReadResult
	err    error
}

// NewCoordinator creates a coordinator that owns replicas
func NewCoordinator(replicas []Replica, m *metrics.LatencyMetrics, opts Options, logger *zap.Logger) (*Coordinator, error) {
	if len(replicas) == 0 {
		return nil, model.ErrNoReplicas
	}
	if m == nil {
		m = metrics.NewLatencyMetrics(metrics.DefaultWindowSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultOptions()
	if opts.OneTimeout <= 0 {
		opts.OneTimeout = defaults.OneTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.ReplicaReadTimeout <= 0 {
		opts.ReplicaReadTimeout = defaults.ReplicaReadTimeout
	}
	if opts.DefaultLevel == 0 {
		opts.DefaultLevel = defaults.DefaultLevel
	}
	if !opts.DefaultLevel.Valid() {
		return nil, fmt.Errorf("default level: %w: %d", model.ErrInvalidConsistency, int(opts.DefaultLevel))
	}
	resolution, err := ParseReadResolution(string(opts.ReadResolution))
	if err != nil {
		return nil, err
	}
	opts.ReadResolution = resolution

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		replicas:    append([]Replica(nil), replicas...),
		consistency: NewConsistencyService(opts.DefaultLevel),
		metrics:     m,
		prom:        opts.Prometheus,
		opts:        opts,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	if opts.VerifyLateReads {
		c.verifier = workerpool.New(workerpool.Config{
			Name:       "stale-read-verifier",
			MaxWorkers: opts.VerifierWorkers,
			QueueSize:  opts.VerifierQueue,
			Logger:     logger,
		})
		c.prom.ObserveVerifier(c.verifier.Stats)
	}

	for _, r := range c.replicas {
		c.prom.SetReplicaPartitioned(r.ID(), r.IsPartitioned())
	}

	logger.Info("Coordinator created",
		zap.Int("replication_factor", len(c.replicas)),
		zap.Stringer("default_level", opts.DefaultLevel),
		zap.String("read_resolution", string(opts.ReadResolution)))

	return c, nil
}

// Close cancels in-flight replica work and stops the verifier
func (c *Coordinator) Close() error {
	c.cancel()
	if c.verifier != nil {
		return c.verifier.Stop(time.Second)
	}
	return nil
}

// ReplicationFactor returns the number of replicas
func (c *Coordinator) ReplicationFactor() int {
	return len(c.replicas)
}

// Consistency returns the consistency service used for level handling
func (c *Coordinator) Consistency() *ConsistencyService {
	return c.consistency
}

// Write replicates rec to every replica and resolves once level is satisfied or the deadline passes
func (c *Coordinator) Write(rec model.Record, level model.ConsistencyLevel) model.WriteOutcome {
	start := time.Now()
	outcome := model.WriteOutcome{ReplicaID: model.NoReplica, Level: level}

	required, err := c.consistency.RequiredAcks(level, len(c.replicas))
	if err != nil {
		outcome.Err = err
		outcome.ErrorReason = err.Error()
		return outcome
	}
	outcome.Required = required

	acks := make(chan writeAck, len(c.replicas))
	for _, r := range c.replicas {
		go func(r Replica) {
			result, err := c.safeWrite(r, rec)
			acks <- writeAck{result: result, err: err}
		}(r)
	}

	timer := time.NewTimer(c.writeDeadline(level))
	defer timer.Stop()

	received := 0
	for outcome.Acked < required {
		if received == len(c.replicas) {
			// Nobody left to ack; the deadline still decides the outcome.
			<-timer.C
			return c.failWrite(outcome, start)
		}

		select {
		case ack := <-acks:
			received++
			c.prom.RecordReplicaOperation(ack.result.ReplicaID, opWrite, ack.err == nil)
			if ack.err != nil {
				c.logger.Debug("Replica write not acknowledged",
					zap.Stringer("record_id", rec.ID),
					zap.Int("replica_id", ack.result.ReplicaID),
					zap.Error(ack.err))
				continue
			}
			outcome.Acked++
			if outcome.ReplicaID == model.NoReplica {
				outcome.ReplicaID = ack.result.ReplicaID
			}
		case <-timer.C:
			return c.failWrite(outcome, start)
		}
	}

	outcome.Success = true
	outcome.Latency = time.Since(start)
	c.recordWrite(outcome)

	c.logger.Debug("Write completed",
		zap.Stringer("record_id", rec.ID),
		zap.Stringer("consistency", level),
		zap.Int("acked", outcome.Acked),
		zap.Int("required", required),
		zap.Duration("latency", outcome.Latency))

	return outcome
}

func (c *Coordinator) failWrite(outcome model.WriteOutcome, start time.Time) model.WriteOutcome {
	outcome.ReplicaID = model.NoReplica
	outcome.Latency = time.Since(start)
	qerr := &model.QuorumError{Op: opWrite, Level: outcome.Level, Acked: outcome.Acked, Required: outcome.Required}
	outcome.Err = qerr
	outcome.ErrorReason = qerr.Error()
	c.recordWrite(outcome)
	c.prom.RecordQuorumFailure(opWrite, outcome.Level.String())

	c.logger.Warn("Write quorum not reached",
		zap.Stringer("consistency", outcome.Level),
		zap.Int("acked", outcome.Acked),
		zap.Int("required", outcome.Required),
		zap.Duration("latency", outcome.Latency))

	return outcome
}

func (c *Coordinator) recordWrite(outcome model.WriteOutcome) {
	c.metrics.RecordWrite(outcome.Level, outcome)
	c.prom.RecordRequest(opWrite, outcome.Level.String(), outcome.Success, outcome.Latency.Seconds())
}

// Read queries every replica and resolves a version once level is satisfied or the deadline passes
func (c *Coordinator) Read(id model.RecordID, level model.ConsistencyLevel) model.ReadOutcome {
	start := time.Now()
	outcome := model.ReadOutcome{ReplicaID: model.NoReplica, Level: level}

	required, err := c.consistency.RequiredAcks(level, len(c.replicas))
	if err != nil {
		outcome.Err = err
		outcome.ErrorReason = err.Error()
		return outcome
	}
	outcome.Required = required

	responses := make(chan readResponse, len(c.replicas))
	for _, r := range c.replicas {
		go func(r Replica) {
			result, err := c.safeRead(r, id)
			responses <- readResponse{result: result, err: err}
		}(r)
	}

	var (
		collected []model.ReplicaReadResult
		received  int
	)
	if level == model.ConsistencyOne {
		collected, received = c.collectFirst(responses)
	} else {
		collected, received = c.collectQuorum(responses, required, start)
	}
	outcome.Responses = len(collected)

	if len(collected) < required {
		outcome.Latency = time.Since(start)
		qerr := &model.QuorumError{Op: opRead, Level: level, Acked: len(collected), Required: required}
		outcome.Err = qerr
		outcome.ErrorReason = qerr.Error()
		c.recordRead(outcome)
		c.prom.RecordQuorumFailure(opRead, level.String())

		c.logger.Warn("Read quorum not reached",
			zap.Stringer("record_id", id),
			zap.Stringer("consistency", level),
			zap.Int("responses", len(collected)),
			zap.Int("required", required))
		return outcome
	}

	chosen, found := c.opts.ReadResolution.resolve(collected)
	outcome.Success = true
	outcome.Found = found
	outcome.ReplicaID = collected[0].ReplicaID
	if found {
		rec := *chosen.Record
		outcome.Record = &rec
		outcome.ReplicaID = chosen.ReplicaID
	}

	if found && level != model.ConsistencyAll {
		for _, resp := range collected {
			if disagrees(*outcome.Record, resp) {
				outcome.IsStale = true
				break
			}
		}
		if outcome.IsStale {
			c.recordStaleRead(id)
		} else if pending := len(c.replicas) - received; pending > 0 {
			c.verifyLate(id, *outcome.Record, responses, pending, start.Add(c.readDeadline(level)))
		}
	}

	outcome.Latency = time.Since(start)
	c.recordRead(outcome)

	c.logger.Debug("Read completed",
		zap.Stringer("record_id", id),
		zap.Stringer("consistency", level),
		zap.Bool("found", found),
		zap.Bool("stale", outcome.IsStale),
		zap.Int("responses", len(collected)),
		zap.Duration("latency", outcome.Latency))

	return outcome
}

// collectFirst returns the first non-error response within the ONE deadline
func (c *Coordinator) collectFirst(responses <-chan readResponse) ([]model.ReplicaReadResult, int) {
	timer := time.NewTimer(c.readDeadline(model.ConsistencyOne))
	defer timer.Stop()

	received := 0
	for received < len(c.replicas) {
		select {
		case resp := <-responses:
			received++
			c.prom.RecordReplicaOperation(resp.result.ReplicaID, opRead, resp.err == nil)
			if resp.err != nil {
				continue
			}
			return []model.ReplicaReadResult{resp.result}, received
		case <-timer.C:
			return nil, received
		}
	}
	return nil, received
}

// collectQuorum gathers responses one at a time. Each wait is bounded by the per-replica
// timeout and the overall read deadline; an expired wait skips one replica.
func (c *Coordinator) collectQuorum(responses <-chan readResponse, required int, start time.Time) ([]model.ReplicaReadResult, int) {
	deadline := start.Add(c.readDeadline(model.ConsistencyQuorum))
	collected := make([]model.ReplicaReadResult, 0, required)
	received, skipped := 0, 0

	for len(collected) < required && len(collected)+skipped < len(c.replicas) {
		wait := min(c.opts.ReplicaReadTimeout, time.Until(deadline))
		if wait <= 0 {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case resp := <-responses:
			timer.Stop()
			received++
			c.prom.RecordReplicaOperation(resp.result.ReplicaID, opRead, resp.err == nil)
			if resp.err != nil {
				skipped++
				continue
			}
			collected = append(collected, resp.result)
		case <-timer.C:
			skipped++
		}
	}
	return collected, received
}

// verifyLate drains the responses still in flight on the verifier pool and counts the read
// as stale once if any of them disagrees with rec
func (c *Coordinator) verifyLate(id model.RecordID, rec model.Record, responses <-chan readResponse, pending int, deadline time.Time) {
	if c.verifier == nil {
		return
	}

	err := c.verifier.TrySubmit(workerpool.Job{
		Name: "verify-read-" + id.String(),
		Fn: func(ctx context.Context) error {
			timer := time.NewTimer(time.Until(deadline))
			defer timer.Stop()

			for range pending {
				select {
				case resp := <-responses:
					if resp.err != nil {
						continue
					}
					if disagrees(rec, resp.result) {
						c.recordStaleRead(id)
						return nil
					}
				case <-timer.C:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		},
	})
	if err != nil {
		c.logger.Debug("Skipping late read verification",
			zap.Stringer("record_id", id),
			zap.Error(err))
	}
}

func (c *Coordinator) recordRead(outcome model.ReadOutcome) {
	c.metrics.RecordRead(outcome.Level, outcome)
	c.prom.RecordRequest(opRead, outcome.Level.String(), outcome.Success, outcome.Latency.Seconds())
}

func (c *Coordinator) recordStaleRead(id model.RecordID) {
	c.metrics.RecordStaleRead()
	c.prom.RecordStaleRead()
	c.logger.Debug("Stale read detected", zap.Stringer("record_id", id))
}

func (c *Coordinator) writeDeadline(level model.ConsistencyLevel) time.Duration {
	if level == model.ConsistencyOne {
		return c.opts.OneTimeout
	}
	return c.opts.WriteTimeout
}

func (c *Coordinator) readDeadline(level model.ConsistencyLevel) time.Duration {
	if level == model.ConsistencyOne {
		return c.opts.OneTimeout
	}
	return c.opts.ReadTimeout
}

// safeWrite absorbs replica panics into ErrReplicaOperation
func (c *Coordinator) safeWrite(r Replica, rec model.Record) (result model.ReplicaWriteResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = model.ReplicaWriteResult{ReplicaID: r.ID()}
			err = fmt.Errorf("replica %d: %w: %v", r.ID(), model.ErrReplicaOperation, p)
			c.logger.Error("Replica write panicked", zap.Int("replica_id", r.ID()), zap.Any("panic", p))
		}
	}()
	return r.Write(c.ctx, rec)
}

// safeRead absorbs replica panics into ErrReplicaOperation
func (c *Coordinator) safeRead(r Replica, id model.RecordID) (result model.ReplicaReadResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = model.ReplicaReadResult{ReplicaID: r.ID()}
			err = fmt.Errorf("replica %d: %w: %v", r.ID(), model.ErrReplicaOperation, p)
			c.logger.Error("Replica read panicked", zap.Int("replica_id", r.ID()), zap.Any("panic", p))
		}
	}()
	return r.Read(c.ctx, id)
}

// SetPartitioned toggles the partition fault on the replica at index (0-based)
func (c *Coordinator) SetPartitioned(index int, partitioned bool) error {
	if index < 0 || index >= len(c.replicas) {
		return fmt.Errorf("%w: %d (replication factor %d)", model.ErrReplicaIndex, index, len(c.replicas))
	}
	r := c.replicas[index]
	r.SetPartitioned(partitioned)
	c.prom.SetReplicaPartitioned(r.ID(), partitioned)
	return nil
}

// Replicas returns a status view of every replica in index order
func (c *Coordinator) Replicas() []model.ReplicaStatus {
	out := make([]model.ReplicaStatus, len(c.replicas))
	for i, r := range c.replicas {
		out[i] = model.ReplicaStatus{
			Index:       i,
			ReplicaID:   r.ID(),
			Partitioned: r.IsPartitioned(),
			Records:     r.Len(),
			BaseLatency: r.BaseLatency(),
		}
	}
	return out
}

// MetricsSnapshot returns the current latency summary
func (c *Coordinator) MetricsSnapshot() metrics.Snapshot {
	return c.metrics.Snapshot()
}
