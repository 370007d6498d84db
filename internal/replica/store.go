// Package replica simulates a single storage node holding records in memory.
package replica

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"go.uber.org/zap"
)

const (
	// DefaultBaseLatency is the fixed part of every simulated round trip
	DefaultBaseLatency = 5 * time.Millisecond
	// DefaultJitter is the upper bound of the random part of a round trip
	DefaultJitter = 10 * time.Millisecond
)

// Config holds per-replica simulation parameters
type Config struct {
	BaseLatency time.Duration
	Jitter      time.Duration
	Sleeper     Sleeper
	Logger      *zap.Logger
}

// Store is an in-memory replica with injectable latency and partition faults
type Store struct {
	id          int
	records     map[model.RecordID]model.Record
	mu          sync.RWMutex
	partitioned atomic.Bool
	baseLatency atomic.Int64
	jitter      time.Duration
	sleeper     Sleeper
	logger      *zap.Logger
}

// NewStore creates a replica store
func NewStore(id int, cfg Config) *Store {
	if cfg.Sleeper == nil {
		cfg.Sleeper = RealSleeper{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	s := &Store{
		id:      id,
		records: make(map[model.RecordID]model.Record),
		jitter:  cfg.Jitter,
		sleeper: cfg.Sleeper,
		logger:  cfg.Logger.With(zap.Int("replica_id", id)),
	}
	s.baseLatency.Store(int64(cfg.BaseLatency))
	return s
}

// NewStores builds replicationFactor stores sharing the same config, numbered from 1
func NewStores(replicationFactor int, cfg Config) ([]*Store, error) {
	if replicationFactor < 1 {
		return nil, fmt.Errorf("%w: got %d", model.ErrNoReplicas, replicationFactor)
	}
	stores := make([]*Store, 0, replicationFactor)
	for i := range replicationFactor {
		stores = append(stores, NewStore(i+1, cfg))
	}
	return stores, nil
}

// ID returns the replica identifier
func (s *Store) ID() int {
	return s.id
}

// Write stores rec after the simulated delay. Rewriting an id overwrites it in place.
func (s *Store) Write(ctx context.Context, rec model.Record) (model.ReplicaWriteResult, error) {
	start := time.Now()

	if s.partitioned.Load() {
		return model.ReplicaWriteResult{ReplicaID: s.id}, fmt.Errorf("replica %d: %w", s.id, model.ErrReplicaUnreachable)
	}

	if err := s.sleeper.Sleep(ctx, s.delay()); err != nil {
		return model.ReplicaWriteResult{ReplicaID: s.id}, fmt.Errorf("replica %d: %w", s.id, err)
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	latency := time.Since(start)
	s.logger.Debug("Record stored",
		zap.Stringer("record_id", rec.ID),
		zap.Duration("latency", latency))

	return model.ReplicaWriteResult{ReplicaID: s.id, Latency: latency}, nil
}

// Read looks up id after the simulated delay. A missing record is not an error.
func (s *Store) Read(ctx context.Context, id model.RecordID) (model.ReplicaReadResult, error) {
	start := time.Now()

	if s.partitioned.Load() {
		return model.ReplicaReadResult{ReplicaID: s.id}, fmt.Errorf("replica %d: %w", s.id, model.ErrReplicaUnreachable)
	}

	if err := s.sleeper.Sleep(ctx, s.delay()); err != nil {
		return model.ReplicaReadResult{ReplicaID: s.id}, fmt.Errorf("replica %d: %w", s.id, err)
	}

	result := model.ReplicaReadResult{ReplicaID: s.id}
	if rec, ok := s.Get(id); ok {
		result.Record = &rec
	}
	result.Latency = time.Since(start)
	return result, nil
}

// Get returns the stored record without simulating latency
func (s *Store) Get(id model.RecordID) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SetPartitioned toggles the simulated network partition
func (s *Store) SetPartitioned(partitioned bool) {
	if s.partitioned.Swap(partitioned) != partitioned {
		s.logger.Info("Replica partition state changed", zap.Bool("partitioned", partitioned))
	}
}

// IsPartitioned reports whether the replica is unreachable
func (s *Store) IsPartitioned() bool {
	return s.partitioned.Load()
}

// SetBaseLatency changes the fixed part of the simulated delay
func (s *Store) SetBaseLatency(d time.Duration) {
	s.baseLatency.Store(int64(d))
}

// BaseLatency returns the fixed part of the simulated delay
func (s *Store) BaseLatency() time.Duration {
	return time.Duration(s.baseLatency.Load())
}

func (s *Store) delay() time.Duration {
	d := s.BaseLatency()
	if s.jitter > 0 {
		d += rand.N(s.jitter)
	}
	return d
}
